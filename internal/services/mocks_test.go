package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/shelterfund/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ApplicationSubmitted(ctx context.Context, app *models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockNotifier) StatusChanged(ctx context.Context, app *models.Application, note string) error {
	args := m.Called(ctx, app, note)
	return args.Error(0)
}

type MockSESService struct {
	mock.Mock
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}
