// Package secret generates the bearer tokens handed to recommenders.
package secret

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Length   = 32
)

// Generator returns a fresh token on each call.
type Generator func() (string, error)

// New returns a 32 character random token over [0-9a-zA-Z].
func New() (string, error) {
	return gonanoid.Generate(Alphabet, Length)
}
