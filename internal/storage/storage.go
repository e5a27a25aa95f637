// Package storage persists complaints in a relational database through gorm.
// PostgreSQL is used in production; a SQLite file works for local runs and tests.
package storage

import (
	"complaintbot/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool defaults for PostgreSQL.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

// Storage is the complaint store shared by the bot, the orchestrator and the listing API.
type Storage interface {
	CreateComplaint(ctx context.Context, in NewComplaint) (*models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id uint, status models.ComplaintStatus) error
	ListComplaints(ctx context.Context, limit, skip int) ([]models.Complaint, error)
	GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error)
	Ping(ctx context.Context) error
}

// NewComplaint holds the fields supplied by the reporter.
type NewComplaint struct {
	UserID      int64
	Description string
	Latitude    *float64
	Longitude   *float64
}

// Validate checks the invariants a stored complaint must satisfy.
func (n NewComplaint) Validate() error {
	if n.UserID == 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidComplaint)
	}
	if n.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidComplaint)
	}
	if (n.Latitude == nil) != (n.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidComplaint)
	}
	return nil
}

// Service implements Storage on top of gorm.
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or keyword DSNs and "sqlite" otherwise.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") || strings.Contains(d, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Open connects to the database named by dsn and migrates the complaints table.
func Open(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database DSN not set")
	}

	kind := DetectDSNType(dsn)
	var dialector gorm.Dialector
	if kind == "postgres" {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", kind, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if kind == "postgres" {
		sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
		sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
		sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	} else {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.Complaint{}); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Debug("storage.Open: database ready", "driver", kind)
	return db, nil
}

// Close releases the underlying connection pool.
func (s *Service) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return newStorageError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return newStorageError("ping", err)
	}
	return nil
}

// CreateComplaint inserts a pending complaint. The insert is a single statement,
// so a failed call leaves no row behind.
func (s *Service) CreateComplaint(ctx context.Context, in NewComplaint) (*models.Complaint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		UserID:      in.UserID,
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Status:      models.StatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(complaint).Error; err != nil {
		slog.Error("storage.CreateComplaint: insert failed", "user_id", in.UserID, "error", err)
		return nil, newStorageError("create complaint", err)
	}

	slog.Debug("storage.CreateComplaint: complaint saved", "complaint_id", complaint.ID, "user_id", in.UserID)
	return complaint, nil
}

// UpdateComplaintStatus moves a pending complaint to a terminal status.
// Repeating the current terminal status is a no-op.
func (s *Service) UpdateComplaintStatus(ctx context.Context, id uint, status models.ComplaintStatus) error {
	if !models.StatusPending.CanTransitionTo(status) {
		return fmt.Errorf("%w: cannot set status %q", ErrInvalidStatusTransition, status)
	}

	// Rows that may move to status: pending ones and those already there.
	allowed := []string{string(models.StatusPending), string(status)}
	result := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND status IN ?", id, allowed).
		Update("status", string(status))
	if result.Error != nil {
		slog.Error("storage.UpdateComplaintStatus: update failed", "complaint_id", id, "status", status, "error", result.Error)
		return newStorageError("update complaint status", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: the id is unknown or the complaint already has the other terminal status.
	current, err := s.GetComplaintByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.CanTransitionTo(status) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, status)
}

// ListComplaints returns a page of complaints, newest first.
func (s *Service) ListComplaints(ctx context.Context, limit, skip int) ([]models.Complaint, error) {
	if limit < 1 || skip < 0 {
		return nil, fmt.Errorf("%w: limit=%d skip=%d", ErrInvalidPage, limit, skip)
	}

	var complaints []models.Complaint
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(skip).
		Find(&complaints).Error
	if err != nil {
		slog.Error("storage.ListComplaints: query failed", "limit", limit, "skip", skip, "error", err)
		return nil, newStorageError("list complaints", err)
	}
	return complaints, nil
}

// GetComplaintByID returns a single complaint.
func (s *Service) GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.WithContext(ctx).First(&complaint, id).Error; err != nil {
		return nil, newStorageError("get complaint", err)
	}
	return &complaint, nil
}
