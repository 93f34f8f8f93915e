package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/labstack/gommon/log"
)

// ServiceInterface sends one email with plain text and html bodies.
type ServiceInterface interface {
	SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error
}

// sesAPI is the part of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESV2Sender implements ServiceInterface using AWS SES v2.
type SESV2Sender struct {
	client    sesAPI
	fromEmail string
	logger    *log.Logger
}

// NewSESV2Sender creates a sender for Amazon SES. Credentials come from the
// default AWS chain (environment, shared config, instance role).
func NewSESV2Sender(ctx context.Context, region, fromEmail string, logger *log.Logger) (*SESV2Sender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("email.NewSESV2Sender: %w", err)
	}

	return &SESV2Sender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		logger:    logger,
	}, nil
}

// SendEmail sends an email using the SES v2 API.
func (s *SESV2Sender) SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(plainTextContent),
						Charset: aws.String("UTF-8"),
					},
					Html: &types.Content{
						Data:    aws.String(htmlContent),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email.SendEmail to %s: %w", to, err)
	}
	s.logger.Infof("sent %q to %s", subject, to)
	return nil
}

// LogSender writes emails to the log instead of sending them. It is used when
// no SES region is configured.
type LogSender struct {
	logger *log.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendEmail logs the subject and plain text body.
func (s *LogSender) SendEmail(ctx context.Context, to, subject, plainTextContent, htmlContent string) error {
	s.logger.Infof("email to %s: %s\n%s", to, subject, plainTextContent)
	return nil
}
