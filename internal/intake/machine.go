// Package intake drives the per-conversation dialogue that collects a
// complaint: a description, then an optional location.
package intake

import (
	"complaintbot/backend/internal/complaint"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultSessionTTL is how long an unfinished dialogue survives without input.
const DefaultSessionTTL = 30 * time.Minute

// State is the position of a conversation in the intake dialogue.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingDescription    State = "awaiting_description"
	StateAwaitingLocationOrSkip State = "awaiting_location_or_skip"
)

// Session is the transient per-conversation intake state.
// An idle conversation has no stored session.
type Session struct {
	State       State     `json:"state"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SessionStore keeps sessions keyed by conversation id.
// Get returns (nil, nil) when the conversation has no session.
type SessionStore interface {
	Get(ctx context.Context, conversationID int64) (*Session, error)
	Put(ctx context.Context, conversationID int64, s Session) error
	Delete(ctx context.Context, conversationID int64) error
}

// InputKind classifies an incoming user event.
type InputKind string

const (
	InputSubmit   InputKind = "submit"
	InputText     InputKind = "text"
	InputLocation InputKind = "location"
	InputSkip     InputKind = "skip"
	InputCancel   InputKind = "cancel"
	InputOther    InputKind = "other"
)

// Input is one user event as seen by the machine.
type Input struct {
	Kind      InputKind
	Text      string
	Latitude  float64
	Longitude float64
}

// Conversation identifies who is talking: the chat that owns the session and
// the user the complaint is attributed to.
type Conversation struct {
	ID     int64
	UserID int64
}

// Submitter runs the submission pipeline for a finished dialogue.
type Submitter interface {
	Submit(ctx context.Context, sub complaint.Submission) (complaint.Result, error)
}

// ReplyKind tells the front-end what to render.
type ReplyKind string

const (
	ReplyIgnored          ReplyKind = "ignored"
	ReplyAskDescription   ReplyKind = "ask_description"
	ReplyAskLocation      ReplyKind = "ask_location"
	ReplyRepromptLocation ReplyKind = "reprompt_location"
	ReplySubmitted        ReplyKind = "submitted"
	ReplyCancelled        ReplyKind = "cancelled"
)

// Reply is the machine's answer to one input.
// Result and Err are set only for ReplySubmitted.
type Reply struct {
	Kind   ReplyKind
	Result complaint.Result
	Err    error
}

// Machine implements the intake transitions on top of a SessionStore.
type Machine struct {
	store     SessionStore
	submitter Submitter
	ttl       time.Duration
	skipWords map[string]struct{}
	now       func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithSessionTTL sets the expiry of idle sessions. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl >= 0 {
			m.ttl = ttl
		}
	}
}

// WithSkipWords sets the texts that count as "skip" while a location is expected.
// Matching ignores case and surrounding whitespace.
func WithSkipWords(words ...string) Option {
	return func(m *Machine) {
		for _, w := range words {
			if w = normalize(w); w != "" {
				m.skipWords[w] = struct{}{}
			}
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine creates an intake machine.
func NewMachine(store SessionStore, submitter Submitter, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		submitter: submitter,
		ttl:       DefaultSessionTTL,
		skipWords: make(map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle applies one input to the conversation's session.
// The returned error reports session store failures only; a failed submission
// is reported through Reply.Err.
func (m *Machine) Handle(ctx context.Context, conv Conversation, in Input) (Reply, error) {
	if in.Kind == InputSubmit {
		if err := m.store.Put(ctx, conv.ID, Session{State: StateAwaitingDescription, UpdatedAt: m.now()}); err != nil {
			return Reply{}, fmt.Errorf("start session: %w", err)
		}
		return Reply{Kind: ReplyAskDescription}, nil
	}

	sess, err := m.load(ctx, conv.ID)
	if err != nil {
		return Reply{}, err
	}
	if sess == nil {
		return Reply{Kind: ReplyIgnored}, nil
	}

	if in.Kind == InputCancel {
		if err := m.store.Delete(ctx, conv.ID); err != nil {
			return Reply{}, fmt.Errorf("cancel session: %w", err)
		}
		return Reply{Kind: ReplyCancelled}, nil
	}

	switch sess.State {
	case StateAwaitingDescription:
		if in.Kind != InputText {
			return Reply{Kind: ReplyAskDescription}, nil
		}
		next := Session{State: StateAwaitingLocationOrSkip, Description: in.Text, UpdatedAt: m.now()}
		if err := m.store.Put(ctx, conv.ID, next); err != nil {
			return Reply{}, fmt.Errorf("store description: %w", err)
		}
		return Reply{Kind: ReplyAskLocation}, nil

	case StateAwaitingLocationOrSkip:
		sub := complaint.Submission{UserID: conv.UserID, Description: sess.Description}
		switch {
		case in.Kind == InputLocation:
			lat, lon := in.Latitude, in.Longitude
			sub.Latitude, sub.Longitude = &lat, &lon
		case in.Kind == InputSkip, in.Kind == InputText && m.isSkipWord(in.Text):
		default:
			return Reply{Kind: ReplyRepromptLocation}, nil
		}
		return m.submit(ctx, conv, sub)

	default:
		slog.Warn("Machine.Handle: unknown session state, discarding", "conversation_id", conv.ID, "state", sess.State)
		if err := m.store.Delete(ctx, conv.ID); err != nil {
			return Reply{}, fmt.Errorf("discard session: %w", err)
		}
		return Reply{Kind: ReplyIgnored}, nil
	}
}

// submit clears the session and hands the complaint to the pipeline.
// The session goes first so a crash mid-submission cannot replay it.
func (m *Machine) submit(ctx context.Context, conv Conversation, sub complaint.Submission) (Reply, error) {
	if err := m.store.Delete(ctx, conv.ID); err != nil {
		return Reply{}, fmt.Errorf("clear session: %w", err)
	}

	result, err := m.submitter.Submit(ctx, sub)
	if err != nil {
		slog.Error("Machine.Handle: submission failed", "conversation_id", conv.ID, "user_id", conv.UserID, "error", err)
	}
	return Reply{Kind: ReplySubmitted, Result: result, Err: err}, nil
}

// load returns the live session, dropping it when it has expired.
func (m *Machine) load(ctx context.Context, conversationID int64) (*Session, error) {
	sess, err := m.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.State == StateIdle {
		return nil, nil
	}
	if m.ttl > 0 && m.now().Sub(sess.UpdatedAt) > m.ttl {
		slog.Info("Machine.Handle: session expired", "conversation_id", conversationID, "state", sess.State)
		if err := m.store.Delete(ctx, conversationID); err != nil {
			return nil, fmt.Errorf("expire session: %w", err)
		}
		return nil, nil
	}
	return sess, nil
}

func (m *Machine) isSkipWord(text string) bool {
	_, ok := m.skipWords[normalize(text)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
