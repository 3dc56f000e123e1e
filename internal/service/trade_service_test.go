package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/bus"
	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

type MockTradeStore struct {
	mock.Mock
}

func (m *MockTradeStore) Create(ctx context.Context, trade domain.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockTradeStore) GetByID(ctx context.Context, id string) (domain.Trade, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Trade), args.Error(1)
}

func (m *MockTradeStore) ListByStatus(ctx context.Context, status domain.TradeStatus, opts domain.ListOpts) ([]domain.Trade, error) {
	args := m.Called(ctx, status, opts)
	trades, _ := args.Get(0).([]domain.Trade)
	return trades, args.Error(1)
}

func (m *MockTradeStore) Complete(ctx context.Context, id string, outcome domain.Outcome, completedAt time.Time) (domain.Trade, error) {
	args := m.Called(ctx, id, outcome, completedAt)
	return args.Get(0).(domain.Trade), args.Error(1)
}

func (m *MockTradeStore) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]domain.Trade, error) {
	args := m.Called(ctx, cutoff)
	trades, _ := args.Get(0).([]domain.Trade)
	return trades, args.Error(1)
}

func (m *MockTradeStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(tradeID string, resolveAt time.Time) error {
	args := m.Called(tradeID, resolveAt)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCreateTradeHappyPath(t *testing.T) {
	store := new(MockTradeStore)
	sched := new(MockScheduler)
	b := bus.NewMemory()
	svc := NewTradeService(store, b, sched, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := b.Subscribe(ctx, domain.TradeChannel)
	require.NoError(t, err)

	store.On("Create", mock.Anything, mock.MatchedBy(func(tr domain.Trade) bool {
		return tr.Status == domain.StatusLive && tr.Outcome == domain.OutcomeNone &&
			tr.CompletedAt == nil && tr.ID != ""
	})).Return(nil).Once()
	sched.On("Schedule", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	before := time.Now().UTC()
	trade, err := svc.CreateTrade(context.Background(), domain.TradeRequest{
		Amount: 100, Direction: domain.DirectionUp, ExpiryTime: 2,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, trade.ID)
	assert.Equal(t, domain.StatusLive, trade.Status)
	assert.Equal(t, domain.OutcomeNone, trade.Outcome)
	assert.Nil(t, trade.CompletedAt)
	assert.False(t, trade.CreatedAt.Before(before))

	// The resolution is registered for createdAt + expiry.
	sched.AssertCalled(t, "Schedule", trade.ID, trade.ResolveAt())

	// A NEW_TRADE event went out with the full record.
	select {
	case payload := <-sub:
		var evt domain.Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, domain.EventNewTrade, evt.Type)
		assert.Equal(t, trade.ID, evt.Trade.ID)
	case <-time.After(time.Second):
		t.Fatal("no NEW_TRADE event published")
	}

	store.AssertExpectations(t)
	sched.AssertExpectations(t)
}

func TestCreateTradeValidation(t *testing.T) {
	store := new(MockTradeStore)
	sched := new(MockScheduler)
	svc := NewTradeService(store, bus.NewMemory(), sched, testLogger())

	tests := []struct {
		name string
		req  domain.TradeRequest
	}{
		{"non-positive amount", domain.TradeRequest{Amount: 0, Direction: domain.DirectionUp, ExpiryTime: 5}},
		{"unknown direction", domain.TradeRequest{Amount: 10, Direction: "left", ExpiryTime: 5}},
		{"non-positive expiry", domain.TradeRequest{Amount: 10, Direction: domain.DirectionDown, ExpiryTime: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTrade(context.Background(), tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}

	// Nothing reached the store or the scheduler.
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	sched.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
}

func TestCreateTradePersistenceFailureHasNoSideEffects(t *testing.T) {
	store := new(MockTradeStore)
	sched := new(MockScheduler)
	b := bus.NewMemory()
	svc := NewTradeService(store, b, sched, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := b.Subscribe(ctx, domain.TradeChannel)
	require.NoError(t, err)

	store.On("Create", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	_, err = svc.CreateTrade(context.Background(), domain.TradeRequest{
		Amount: 50, Direction: domain.DirectionDown, ExpiryTime: 10,
	})
	require.Error(t, err)

	sched.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
	select {
	case payload := <-sub:
		t.Fatalf("unexpected event after failed persistence: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateTradeSchedulingFailureIsReported(t *testing.T) {
	store := new(MockTradeStore)
	sched := new(MockScheduler)
	svc := NewTradeService(store, bus.NewMemory(), sched, testLogger())

	store.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	sched.On("Schedule", mock.Anything, mock.Anything).
		Return(domain.ErrSchedulerStopped).Once()

	_, err := svc.CreateTrade(context.Background(), domain.TradeRequest{
		Amount: 25, Direction: domain.DirectionUp, ExpiryTime: 3,
	})
	require.ErrorIs(t, err, domain.ErrSchedulerStopped)
}

func TestListLivePassesThrough(t *testing.T) {
	store := new(MockTradeStore)
	svc := NewTradeService(store, bus.NewMemory(), new(MockScheduler), testLogger())

	want := []domain.Trade{{ID: "a", Status: domain.StatusLive}}
	store.On("ListByStatus", mock.Anything, domain.StatusLive, domain.ListOpts{Limit: 10}).
		Return(want, nil).Once()

	got, err := svc.ListLive(context.Background(), domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	store.AssertExpectations(t)
}

func TestListCompletedLogPassesThrough(t *testing.T) {
	store := new(MockTradeStore)
	svc := NewTradeService(store, bus.NewMemory(), new(MockScheduler), testLogger())

	store.On("ListByStatus", mock.Anything, domain.StatusCompleted, domain.ListOpts{}).
		Return(nil, nil).Once()

	got, err := svc.ListCompletedLog(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, got)
	store.AssertExpectations(t)
}
