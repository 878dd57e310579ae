package services

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/shelterfund/backend/internal/models"
)

// Notifier is invoked exactly once per successful lifecycle transition.
// Dispatch is best-effort: a failure is logged and surfaced to operators, but
// the authoritative state change is never rolled back because of it.
type Notifier interface {
	ApplicationSubmitted(ctx context.Context, app *models.Application) error
	StatusChanged(ctx context.Context, app *models.Application, note string) error
}

// SESService is the slice of the SES client the notifier needs, kept as an
// interface for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailNotifier sends applicant emails through AWS SES.
type EmailNotifier struct {
	client    SESService
	fromEmail string
}

func NewEmailNotifier(ctx context.Context, region, fromEmail string) (*EmailNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &EmailNotifier{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
	}, nil
}

func (n *EmailNotifier) ApplicationSubmitted(ctx context.Context, app *models.Application) error {
	subject := fmt.Sprintf("Application %s received", app.ApplicationID)
	body := fmt.Sprintf(
		"Dear %s,\n\nWe have received your %s loan application %s for NGN %d. Our team will review it and update you shortly.\n\nShelterFund",
		app.PersonalInfo.FullName, app.LoanPurpose, app.ApplicationID, app.DesiredLoanAmount(),
	)
	return n.send(ctx, app.PersonalInfo.Email, subject, body)
}

func (n *EmailNotifier) StatusChanged(ctx context.Context, app *models.Application, note string) error {
	subject := fmt.Sprintf("Application %s update", app.ApplicationID)
	body := fmt.Sprintf("Dear %s,\n\nYour loan application %s is now %s.",
		app.PersonalInfo.FullName, app.ApplicationID, statusPhrase(app.Status))
	if app.Status == models.StatusRejected && note != "" {
		body += fmt.Sprintf("\n\nReviewer note: %s", note)
	}
	body += "\n\nShelterFund"
	return n.send(ctx, app.PersonalInfo.Email, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, body string) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	return err
}

func statusPhrase(s models.Status) string {
	switch s {
	case models.StatusUnderReview:
		return "under review"
	case models.StatusApproved:
		return "approved"
	case models.StatusRejected:
		return "rejected"
	}
	return string(s)
}

// LogNotifier stands in when SES is not configured, so local and test
// environments still observe the transition notifications.
type LogNotifier struct{}

func (LogNotifier) ApplicationSubmitted(ctx context.Context, app *models.Application) error {
	log.Printf("[NOTIFY] Application %s submitted by %s", app.ApplicationID, app.PersonalInfo.Email)
	return nil
}

func (LogNotifier) StatusChanged(ctx context.Context, app *models.Application, note string) error {
	log.Printf("[NOTIFY] Application %s status changed to %s", app.ApplicationID, app.Status)
	return nil
}
