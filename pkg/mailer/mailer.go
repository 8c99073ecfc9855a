// Package mailer delivers transactional email (verification links, password
// resets) through AWS SES.
package mailer

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/captionly/captionly-backend/pkg/config"
	"github.com/captionly/captionly-backend/pkg/logger"
)

// Mailer sends a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SES sends mail through Amazon SES.
type SES struct {
	client *ses.Client
	from   string
}

// NewSES builds an SES-backed mailer for the configured region.
func NewSES(ctx context.Context, cfg config.MailerConfig) (*SES, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &SES{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromAddress,
	}, nil
}

func (s *SES) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}

// LogOnly drops mail on the floor and logs it, for dev environments without
// SES credentials.
type LogOnly struct {
	Logg *logger.Logger
}

func (l *LogOnly) Send(ctx context.Context, to, subject, body string) error {
	if l.Logg != nil {
		ctx = l.Logg.WithFields(ctx, map[string]any{"to": to, "subject": subject})
		l.Logg.Info(ctx, "mail suppressed")
	}
	return nil
}
