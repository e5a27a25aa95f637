package complaint_test

import (
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/notification"
	"complaintbot/backend/internal/storage"
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateComplaint(ctx context.Context, in storage.NewComplaint) (*models.Complaint, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) UpdateComplaintStatus(ctx context.Context, id uint, status models.ComplaintStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStorage) ListComplaints(ctx context.Context, limit, skip int) ([]models.Complaint, error) {
	args := m.Called(ctx, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complaint), args.Error(1)
}

func (m *MockStorage) GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, p notification.Payload) notification.Outcome {
	args := m.Called(ctx, p)
	return args.Get(0).(notification.Outcome)
}

type panickingNotifier struct{}

func (panickingNotifier) Deliver(context.Context, notification.Payload) notification.Outcome {
	panic("boom")
}
