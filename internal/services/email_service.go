package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESEmailService sends security email using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendPasswordReset sends a password reset link to the user
func (s *AWSSESEmailService) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Reset Your Password</h1>
        </div>
        <p>A password reset was requested for your account. Click the link below to choose a new password:</p>
        <p><a href="%s" class="button">Reset Password</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <div class="warning">
            <strong>Security Notice:</strong> This link will expire in 1 hour and can be used once.
        </div>
        <p><strong>Didn't request this?</strong><br>
        If you did not request a password reset, you can ignore this email. Your password will not change.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, resetURL, resetURL)

	textBody := fmt.Sprintf(`Reset Your Password

A password reset was requested for your account. Use the link below to choose a new password:

%s

Security Notice: This link will expire in 1 hour and can be used once.

Didn't request this?
If you did not request a password reset, you can ignore this email. Your password will not change.

This is an automated message. Please do not reply to this email.
`, resetURL)

	return s.send(ctx, toEmail, "Reset your password", htmlBody, textBody)
}

// SendSecurityAlert sends a plain security notification
func (s *AWSSESEmailService) SendSecurityAlert(ctx context.Context, toEmail, subject, message string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8d7da; padding: 20px; text-align: center; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>%s</h1>
        </div>
        <p>%s</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, subject, message)

	textBody := fmt.Sprintf("%s\n\n%s\n\nThis is an automated message. Please do not reply to this email.\n", subject, message)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", slog.String("message_id", *result.MessageId))
	return nil
}

// LogEmailService logs outbound email instead of sending it. Used in
// development environments where SES credentials are not configured.
type LogEmailService struct {
	logger *slog.Logger
}

func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

func (s *LogEmailService) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	s.logger.Info("password reset email (delivery disabled)",
		slog.String("to", toEmail),
		slog.String("reset_url", resetURL),
	)
	return nil
}

func (s *LogEmailService) SendSecurityAlert(ctx context.Context, toEmail, subject, message string) error {
	s.logger.Info("security alert email (delivery disabled)",
		slog.String("to", toEmail),
		slog.String("subject", subject),
		slog.String("message", message),
	)
	return nil
}
