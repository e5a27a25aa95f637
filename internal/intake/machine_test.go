package intake_test

import (
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/intake"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, sub complaint.Submission) (complaint.Result, error) {
	args := m.Called(ctx, sub)
	return args.Get(0).(complaint.Result), args.Error(1)
}

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, int64) (*intake.Session, error) { return nil, f.err }
func (f failingStore) Put(context.Context, int64, intake.Session) error    { return f.err }
func (f failingStore) Delete(context.Context, int64) error                 { return f.err }

var conv = intake.Conversation{ID: 100, UserID: 42}

func newMachine(store intake.SessionStore, sub intake.Submitter, opts ...intake.Option) *intake.Machine {
	opts = append([]intake.Option{intake.WithSkipWords("Пропустить", "Skip")}, opts...)
	return intake.NewMachine(store, sub, opts...)
}

func handle(t *testing.T, m *intake.Machine, in intake.Input) intake.Reply {
	t.Helper()
	reply, err := m.Handle(context.Background(), conv, in)
	require.NoError(t, err)
	return reply
}

func state(t *testing.T, store intake.SessionStore) intake.State {
	t.Helper()
	sess, err := store.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	if sess == nil {
		return intake.StateIdle
	}
	return sess.State
}

func TestHandle_IdleIgnoresEverythingButSubmit(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	for _, kind := range []intake.InputKind{intake.InputText, intake.InputLocation, intake.InputSkip, intake.InputCancel, intake.InputOther} {
		reply := handle(t, m, intake.Input{Kind: kind, Text: "hello"})
		assert.Equal(t, intake.ReplyIgnored, reply.Kind, kind)
	}
	assert.Equal(t, intake.StateIdle, state(t, store))
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestHandle_DescriptionThenSkip(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	assert.Equal(t, intake.ReplyAskDescription, handle(t, m, intake.Input{Kind: intake.InputSubmit}).Kind)
	assert.Equal(t, intake.StateAwaitingDescription, state(t, store))

	assert.Equal(t, intake.ReplyAskLocation, handle(t, m, intake.Input{Kind: intake.InputText, Text: "pothole on 5th ave"}).Kind)
	assert.Equal(t, intake.StateAwaitingLocationOrSkip, state(t, store))

	sub.On("Submit", mock.Anything, complaint.Submission{UserID: 42, Description: "pothole on 5th ave"}).
		Return(complaint.ResultDelivered, nil).Once()

	reply := handle(t, m, intake.Input{Kind: intake.InputSkip})
	assert.Equal(t, intake.ReplySubmitted, reply.Kind)
	assert.Equal(t, complaint.ResultDelivered, reply.Result)
	assert.NoError(t, reply.Err)
	assert.Equal(t, intake.StateIdle, state(t, store))
	sub.AssertExpectations(t)
}

func TestHandle_SkipWordMatchesCaseInsensitively(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "broken lamp"})

	sub.On("Submit", mock.Anything, complaint.Submission{UserID: 42, Description: "broken lamp"}).
		Return(complaint.ResultDeferred, nil).Once()

	reply := handle(t, m, intake.Input{Kind: intake.InputText, Text: "  пропустить "})
	assert.Equal(t, intake.ReplySubmitted, reply.Kind)
	assert.Equal(t, complaint.ResultDeferred, reply.Result)
	sub.AssertExpectations(t)
}

func TestHandle_LocationCarriesCoordinates(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "x"})

	sub.On("Submit", mock.Anything, mock.MatchedBy(func(s complaint.Submission) bool {
		return s.UserID == 42 && s.Description == "x" &&
			s.Latitude != nil && *s.Latitude == 55.75 &&
			s.Longitude != nil && *s.Longitude == 37.61
	})).Return(complaint.ResultDeferred, nil).Once()

	reply := handle(t, m, intake.Input{Kind: intake.InputLocation, Latitude: 55.75, Longitude: 37.61})
	assert.Equal(t, intake.ReplySubmitted, reply.Kind)
	assert.Equal(t, intake.StateIdle, state(t, store))
	sub.AssertExpectations(t)
}

func TestHandle_AwaitingLocationRepromptsOnOtherInput(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "x"})

	for _, in := range []intake.Input{
		{Kind: intake.InputText, Text: "somewhere near the park"},
		{Kind: intake.InputOther},
	} {
		assert.Equal(t, intake.ReplyRepromptLocation, handle(t, m, in).Kind)
		assert.Equal(t, intake.StateAwaitingLocationOrSkip, state(t, store))
	}
	sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestHandle_AwaitingDescriptionAcceptsTextVerbatim(t *testing.T) {
	store := intake.NewMemoryStore()
	m := newMachine(store, new(MockSubmitter))

	handle(t, m, intake.Input{Kind: intake.InputSubmit})

	assert.Equal(t, intake.ReplyAskDescription, handle(t, m, intake.Input{Kind: intake.InputLocation, Latitude: 1, Longitude: 2}).Kind)
	assert.Equal(t, intake.StateAwaitingDescription, state(t, store))

	// A skip word is only special once a location is expected.
	assert.Equal(t, intake.ReplyAskLocation, handle(t, m, intake.Input{Kind: intake.InputText, Text: "Skip"}).Kind)
	sess, err := store.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Skip", sess.Description)
}

func TestHandle_SubmitRestartsDialogue(t *testing.T) {
	store := intake.NewMemoryStore()
	m := newMachine(store, new(MockSubmitter))

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "old"})

	assert.Equal(t, intake.ReplyAskDescription, handle(t, m, intake.Input{Kind: intake.InputSubmit}).Kind)
	sess, err := store.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, intake.StateAwaitingDescription, sess.State)
	assert.Empty(t, sess.Description)
}

func TestHandle_CancelClearsSession(t *testing.T) {
	store := intake.NewMemoryStore()
	m := newMachine(store, new(MockSubmitter))

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "x"})

	assert.Equal(t, intake.ReplyCancelled, handle(t, m, intake.Input{Kind: intake.InputCancel}).Kind)
	assert.Equal(t, intake.StateIdle, state(t, store))
	assert.Equal(t, 0, store.Len())
}

func TestHandle_ExpiredSessionIsIdle(t *testing.T) {
	store := intake.NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newMachine(store, new(MockSubmitter),
		intake.WithSessionTTL(10*time.Minute),
		intake.WithClock(func() time.Time { return now }),
	)

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	now = now.Add(11 * time.Minute)

	assert.Equal(t, intake.ReplyIgnored, handle(t, m, intake.Input{Kind: intake.InputText, Text: "late"}).Kind)
	assert.Equal(t, 0, store.Len())
}

func TestHandle_SubmissionFailureClearsSession(t *testing.T) {
	store := intake.NewMemoryStore()
	sub := new(MockSubmitter)
	m := newMachine(store, sub)

	handle(t, m, intake.Input{Kind: intake.InputSubmit})
	handle(t, m, intake.Input{Kind: intake.InputText, Text: "x"})

	failure := errors.New("complaint could not be stored")
	sub.On("Submit", mock.Anything, mock.Anything).Return(complaint.ResultStorageFailure, failure).Once()

	reply := handle(t, m, intake.Input{Kind: intake.InputSkip})
	assert.Equal(t, intake.ReplySubmitted, reply.Kind)
	assert.Equal(t, complaint.ResultStorageFailure, reply.Result)
	assert.ErrorIs(t, reply.Err, failure)
	assert.Equal(t, intake.StateIdle, state(t, store))
}

func TestHandle_StoreErrorIsReturned(t *testing.T) {
	storeErr := errors.New("redis: connection refused")
	m := newMachine(failingStore{err: storeErr}, new(MockSubmitter))

	_, err := m.Handle(context.Background(), conv, intake.Input{Kind: intake.InputSubmit})
	assert.ErrorIs(t, err, storeErr)

	_, err = m.Handle(context.Background(), conv, intake.Input{Kind: intake.InputText, Text: "x"})
	assert.ErrorIs(t, err, storeErr)
}

func TestHandle_ConversationsAreIndependent(t *testing.T) {
	store := intake.NewMemoryStore()
	m := newMachine(store, new(MockSubmitter))
	ctx := context.Background()

	other := intake.Conversation{ID: 200, UserID: 7}
	_, err := m.Handle(ctx, conv, intake.Input{Kind: intake.InputSubmit})
	require.NoError(t, err)

	reply, err := m.Handle(ctx, other, intake.Input{Kind: intake.InputText, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, intake.ReplyIgnored, reply.Kind)
	assert.Equal(t, intake.StateAwaitingDescription, state(t, store))
}
