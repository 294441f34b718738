package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	HTMLBody  string
}

// Service sends transactional email through the SendGrid v3 API.
type Service struct {
	client *sendgrid.Client
	from   *sgmail.Email
	logger zerolog.Logger
}

// Config contains SendGrid credentials and the sender identity.
type Config struct {
	APIKey      string
	FromName    string
	FromAddress string
}

// New constructs a SendGrid mailer.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid api key must be provided")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("sender address must be provided")
	}

	return &Service{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger.With().Str("component", "mailer").Logger(),
	}, nil
}

// Send delivers a single message. A non-2xx provider response is an error.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if msg.ToAddress == "" {
		return fmt.Errorf("recipient address must be provided")
	}

	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	email := sgmail.NewSingleEmail(s.from, msg.Subject, to, msg.HTMLBody, msg.HTMLBody)

	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sendgrid responded with status %d", response.StatusCode)
	}

	s.logger.Info().Str("to", msg.ToAddress).Str("subject", msg.Subject).Msg("email sent")

	return nil
}
