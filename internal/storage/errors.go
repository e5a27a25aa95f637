package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrComplaintNotFound is returned when no complaint has the requested id.
	ErrComplaintNotFound = errors.New("complaint not found")
	// ErrInvalidStatusTransition is returned for any status change other than pending -> terminal.
	ErrInvalidStatusTransition = errors.New("invalid complaint status transition")
	// ErrInvalidComplaint is returned when a complaint misses required fields.
	ErrInvalidComplaint = errors.New("invalid complaint")
	// ErrInvalidPage is returned for limit < 1 or skip < 0.
	ErrInvalidPage = errors.New("invalid page")
)

// StorageError wraps a failed database operation.
// Unavailable is set when the failure looks like lost connectivity rather than a rejected statement.
type StorageError struct {
	Op          string
	Err         error
	Unavailable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(op string, err error) *StorageError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrComplaintNotFound
	}
	return &StorageError{Op: op, Err: err, Unavailable: isConnectivityError(err)}
}

// IsUnavailable reports whether err is a StorageError caused by lost connectivity.
func IsUnavailable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Unavailable
}

func isConnectivityError(err error) bool {
	// database/sql has no sentinel for a closed handle.
	if err != nil && strings.Contains(err.Error(), "sql: database is closed") {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
