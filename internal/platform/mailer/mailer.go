package mailer

import (
	"context"
	"errors"
	"strings"
)

type Address struct {
	Email string
	Name  string
}

// Message is one outgoing email. HTML and Text are alternative bodies of the
// same content; at least one is required.
type Message struct {
	From    Address
	To      Address
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages. Implementations make one best-effort attempt per
// Send (the SendGrid client retries transient HTTP failures internally).
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var (
	ErrNoRecipient = errors.New("mailer: recipient required")
	ErrNoBody      = errors.New("mailer: html or text body required")
)

func (m Message) validate() error {
	if strings.TrimSpace(m.To.Email) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.HTML) == "" && strings.TrimSpace(m.Text) == "" {
		return ErrNoBody
	}
	return nil
}

// withDefaultFrom fills an empty sender from def.
func (m Message) withDefaultFrom(def Address) Message {
	if strings.TrimSpace(m.From.Email) == "" {
		m.From.Email = def.Email
		if strings.TrimSpace(m.From.Name) == "" {
			m.From.Name = def.Name
		}
	}
	return m
}
