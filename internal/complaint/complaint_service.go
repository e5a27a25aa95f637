// Package complaint provides the submission pipeline for citizen complaints:
// persist a pending record, relay it to the notification endpoint and record
// the delivery outcome.
package complaint

import (
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/notification"
	"complaintbot/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultFinalizeTimeout bounds the status update that follows a delivery attempt.
const DefaultFinalizeTimeout = 5 * time.Second

// ErrStorageFailure is returned when the complaint could not be persisted.
var ErrStorageFailure = errors.New("complaint could not be stored")

// Result is the user-visible outcome of a submission.
type Result string

const (
	// ResultDelivered means the complaint was stored and relayed.
	ResultDelivered Result = "delivered"
	// ResultDeferred means the complaint was stored but the notification endpoint did not accept it.
	ResultDeferred Result = "deferred"
	// ResultStorageFailure means nothing was stored and no delivery was attempted.
	ResultStorageFailure Result = "storage_failure"
)

// Notifier delivers a complaint to the external endpoint.
type Notifier interface {
	Deliver(ctx context.Context, p notification.Payload) notification.Outcome
}

// Submission is the data collected from the reporter.
type Submission struct {
	UserID      int64
	Description string
	Latitude    *float64
	Longitude   *float64
}

// Service handles the business logic for complaints.
type Service struct {
	Storage         storage.Storage
	Notifier        Notifier
	FinalizeTimeout time.Duration
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, n Notifier) *Service {
	return &Service{
		Storage:         s,
		Notifier:        n,
		FinalizeTimeout: DefaultFinalizeTimeout,
	}
}

// Submit stores the complaint, attempts delivery once and records the outcome.
// An error is returned only when the complaint could not be stored; once a
// record exists the result is ResultDelivered or ResultDeferred.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	created, err := s.Storage.CreateComplaint(ctx, storage.NewComplaint{
		UserID:      sub.UserID,
		Description: sub.Description,
		Latitude:    sub.Latitude,
		Longitude:   sub.Longitude,
	})
	if err != nil {
		slog.Error("complaint.Submit: failed to store complaint",
			"user_id", sub.UserID, "store_unavailable", storage.IsUnavailable(err), "error", err)
		return ResultStorageFailure, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	// The record exists now; delivery and finalization are not cancelled with the caller.
	detached := context.WithoutCancel(ctx)

	outcome := s.deliver(detached, notification.Payload{
		UserID:      created.UserID,
		Description: created.Description,
		Latitude:    created.Latitude,
		Longitude:   created.Longitude,
		ComplaintID: created.ID,
	})

	finalizeCtx, cancel := context.WithTimeout(detached, s.finalizeTimeout())
	defer cancel()

	if outcome.OK() {
		if err := s.Storage.UpdateComplaintStatus(finalizeCtx, created.ID, models.StatusSent); err != nil {
			slog.Error("complaint.Submit: delivered but status update failed, complaint stays pending",
				"complaint_id", created.ID, "error", err)
		}
		return ResultDelivered, nil
	}

	slog.Warn("complaint.Submit: delivery failed, marking server_load",
		"complaint_id", created.ID, "outcome", outcome.Kind, "status_code", outcome.StatusCode, "error", outcome.Err)
	if err := s.Storage.UpdateComplaintStatus(finalizeCtx, created.ID, models.StatusServerLoad); err != nil {
		slog.Error("complaint.Submit: failed to mark complaint server_load", "complaint_id", created.ID, "error", err)
	}
	return ResultDeferred, nil
}

// deliver turns a panicking notifier into an unreachable outcome.
func (s *Service) deliver(ctx context.Context, p notification.Payload) (out notification.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = notification.Outcome{Kind: notification.Unreachable, Err: fmt.Errorf("notifier panic: %v", r)}
		}
	}()
	return s.Notifier.Deliver(ctx, p)
}

func (s *Service) finalizeTimeout() time.Duration {
	if s.FinalizeTimeout > 0 {
		return s.FinalizeTimeout
	}
	return DefaultFinalizeTimeout
}
