package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/pkg/richtext"
	"github.com/yungbote/recommend-backend/internal/platform/mailer"
)

// Site holds the installation-wide values substituted into emails.
type Site struct {
	Name         string
	AdminSignoff string
	BaseURL      string
}

func (s Site) base() string { return strings.TrimRight(s.BaseURL, "/") }

// RecommendLink is the public form address handed to the recommender.
func (s Site) RecommendLink(secret string) string {
	return fmt.Sprintf("%s/recommend/%s", s.base(), secret)
}

func (s Site) ActivityLink(activityID uuid.UUID) string {
	return fmt.Sprintf("%s/activities/%s", s.base(), activityID)
}

func (s Site) RequestLink(activityID, requestID uuid.UUID) string {
	return fmt.Sprintf("%s/activities/%s/requests/%s", s.base(), activityID, requestID)
}

// RenderRequestEmail builds the message asking a recommender to fill the
// form. Placeholders are replaced literally after the body format has been
// resolved to HTML; the text part is derived from that HTML.
func (s Site) RenderRequestEmail(activity *types.Activity, participant *types.User, req *types.Request) mailer.Message {
	replacer := strings.NewReplacer(
		"{PARTICIPANT}", participant.FullName(),
		"{NAME}", req.Name,
		"{LINK}", s.RecommendLink(req.Secret),
		"{SITE}", s.Name,
		"{ADMIN}", s.AdminSignoff,
	)
	html := replacer.Replace(richtext.ToHTML(activity.RequestTemplateBody, activity.RequestTemplateBodyFormat))
	return mailer.Message{
		To:      mailer.Address{Email: req.Email, Name: req.Name},
		Subject: replacer.Replace(activity.RequestTemplateSubject),
		HTML:    html,
		Text:    richtext.ToText(html),
	}
}

type statusMessageData struct {
	Recipient   string
	Participant string
	Name        string
	Email       string
	Status      string
	Module      string
	Site        string
	Admin       string
	Link        string
}

func renderStatusChanged(d statusMessageData) (subject, body string) {
	subject = fmt.Sprintf("%s: %s", d.Module, d.Status)
	body = fmt.Sprintf("Dear %s,\n\nthe status of the recommendation requested from %s (%s) in %s is now: %s.\n\n%s\n\n%s\n",
		d.Recipient, d.Name, d.Email, d.Module, d.Status, d.Link, d.Admin)
	return subject, body
}

func renderRecommendationCompleted(d statusMessageData) (subject, body string) {
	subject = fmt.Sprintf("%s: recommendation for %s completed", d.Module, d.Participant)
	body = fmt.Sprintf("Dear %s,\n\n%s (%s) has completed a recommendation for %s in %s.\nReview it here:\n%s\n\n%s\n",
		d.Recipient, d.Name, d.Email, d.Participant, d.Module, d.Link, d.Admin)
	return subject, body
}
