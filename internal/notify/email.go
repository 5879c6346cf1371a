package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// EmailNotifier sends low-rating alerts through Resend.
type EmailNotifier struct {
	client *resend.Client
	from   string
}

func NewEmailNotifier(apiKey, from string) *EmailNotifier {
	return &EmailNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (n *EmailNotifier) Publish(ctx context.Context, alert Alert) error {
	if alert.Email == "" {
		return fmt.Errorf("business %q has no contact email configured", alert.BusinessName)
	}

	comment := alert.Comment
	if comment == "" {
		comment = "No comment provided"
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{alert.Email},
		Subject: fmt.Sprintf("Low rating alert: %s", alert.BusinessName),
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">A guest left a low rating</h2>
				<p>Rating: %s (%d/5)</p>
				<p style="color: #555; border-left: 3px solid #ef4444; padding-left: 12px;">%s</p>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					Open your dashboard to follow up and mark the review resolved.
				</p>
			</div>
		`, stars(alert.Rating), alert.Rating, comment),
	}

	sent, err := n.client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	log.Info().Str("email_id", sent.Id).Str("business", alert.BusinessName).Msg("low rating alert sent")
	return nil
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
