package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// NotificationService tells a user their analysis report is ready. It is a
// best-effort side channel: callers log failures and move on, a failed
// notification never invalidates the report write it follows.
type NotificationService interface {
	NotifyReportReady(ctx context.Context, email, username string, readinessScore float64, certificationName string) error
}

type sendgridNotificationService struct {
	client  *sendgrid.Client
	from    *sgmail.Email
	appName string
	logger  *slog.Logger
}

func NewSendgridNotificationService(apiKey, appName, fromEmail string, logger *slog.Logger) NotificationService {
	return &sendgridNotificationService{
		client:  sendgrid.NewSendClient(apiKey),
		from:    sgmail.NewEmail(appName, fromEmail),
		appName: appName,
		logger:  logger,
	}
}

func (s *sendgridNotificationService) NotifyReportReady(ctx context.Context, email, username string, readinessScore float64, certificationName string) error {
	subject := fmt.Sprintf("[%s] Your %s readiness report is ready", s.appName, certificationName)

	plain := fmt.Sprintf(
		"Hi %s,\n\nYour updated %s performance analysis is ready. Current readiness score: %.0f/100.\n\nLog in to review your full report.\n",
		username, certificationName, readinessScore)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your updated <strong>%s</strong> performance analysis is ready. Current readiness score: <strong>%.0f/100</strong>.</p><p>Log in to review your full report.</p>",
		username, certificationName, readinessScore)

	message := sgmail.NewSingleEmail(s.from, subject, sgmail.NewEmail(username, email), plain, html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Debug("Report notification sent", "email", email, "status", resp.StatusCode)
	return nil
}

// noopNotificationService is used when no Sendgrid key is configured.
type noopNotificationService struct {
	logger *slog.Logger
}

func NewNoopNotificationService(logger *slog.Logger) NotificationService {
	return &noopNotificationService{logger: logger}
}

func (s *noopNotificationService) NotifyReportReady(_ context.Context, email, _ string, _ float64, _ string) error {
	s.logger.Info("Notification skipped, no email provider configured", "email", email)
	return nil
}
