package models

import "time"

// ComplaintStatus is the delivery lifecycle of a complaint.
type ComplaintStatus string

const (
	// StatusPending is set on creation, before the notification endpoint answered.
	StatusPending ComplaintStatus = "pending"
	// StatusSent means the notification endpoint accepted the complaint.
	StatusSent ComplaintStatus = "sent"
	// StatusServerLoad means delivery failed; the complaint stays stored for later processing.
	StatusServerLoad ComplaintStatus = "server_load"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusServerLoad
}

// CanTransitionTo reports whether a complaint in status s may be moved to next.
// Setting the current terminal status again is allowed and is a no-op.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	if !next.IsTerminal() {
		return false
	}
	return s == StatusPending || s == next
}

// Complaint is a citizen report stored in the database.
// Latitude and Longitude are either both set or both nil.
type Complaint struct {
	// ID is assigned by the database on insert.
	ID uint `gorm:"primaryKey" json:"id"`
	// UserID is the Telegram user id of the reporter.
	UserID      int64           `gorm:"not null;index" json:"userId"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Latitude    *float64        `json:"latitude"`
	Longitude   *float64        `json:"longitude"`
	Status      ComplaintStatus `gorm:"type:varchar(32);not null;default:pending;index" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"createdAt"`
}

// HasLocation reports whether the complaint carries coordinates.
func (c *Complaint) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}
