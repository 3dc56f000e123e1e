package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

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
	if trades := args.Get(0); trades != nil {
		return trades.([]domain.Trade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTradeStore) Complete(ctx context.Context, id string, outcome domain.Outcome, completedAt time.Time) (domain.Trade, error) {
	args := m.Called(ctx, id, outcome, completedAt)
	return args.Get(0).(domain.Trade), args.Error(1)
}

func (m *MockTradeStore) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]domain.Trade, error) {
	args := m.Called(ctx, cutoff)
	if trades := args.Get(0); trades != nil {
		return trades.([]domain.Trade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTradeStore) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockBlobWriter struct {
	mock.Mock
}

func (m *MockBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	body, _ := io.ReadAll(data)
	args := m.Called(ctx, path, body, contentType)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedTrade(id string, completedAt time.Time) domain.Trade {
	return domain.Trade{
		ID:          id,
		Amount:      50,
		Direction:   domain.DirectionUp,
		ExpiryTime:  60,
		Status:      domain.StatusCompleted,
		Outcome:     domain.OutcomeWon,
		CreatedAt:   completedAt.Add(-time.Minute),
		CompletedAt: &completedAt,
	}
}

func TestArchiverUploadsThenPrunes(t *testing.T) {
	store := new(MockTradeStore)
	blob := new(MockBlobWriter)

	old := completedTrade("trade-1", time.Now().UTC().AddDate(0, 0, -45))
	older := completedTrade("trade-2", time.Now().UTC().AddDate(0, 0, -60))

	store.On("ListCompletedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Trade{older, old}, nil)
	blob.On("Put", mock.Anything, mock.MatchedBy(func(path string) bool {
		return strings.HasPrefix(path, "trades/") && strings.HasSuffix(path, ".jsonl")
	}), mock.Anything, "application/x-ndjson").Return(nil)
	store.On("DeleteCompletedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(int64(2), nil)

	a := New(store, blob, 30, time.Hour, testLogger())
	require.NoError(t, a.runOnce(context.Background()))

	store.AssertExpectations(t)
	blob.AssertExpectations(t)

	// The uploaded object is one JSON document per line, oldest first.
	body := blob.Calls[0].Arguments.Get(2).([]byte)
	lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"id":"trade-2"`)
	assert.Contains(t, string(lines[1]), `"id":"trade-1"`)
	assert.Contains(t, string(lines[0]), `"outcome":"won"`)
}

func TestArchiverSkipsUploadWhenNothingToArchive(t *testing.T) {
	store := new(MockTradeStore)
	blob := new(MockBlobWriter)

	store.On("ListCompletedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Trade{}, nil)

	a := New(store, blob, 30, time.Hour, testLogger())
	require.NoError(t, a.runOnce(context.Background()))

	blob.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "DeleteCompletedBefore", mock.Anything, mock.Anything)
}

func TestArchiverKeepsTradesWhenUploadFails(t *testing.T) {
	store := new(MockTradeStore)
	blob := new(MockBlobWriter)

	old := completedTrade("trade-1", time.Now().UTC().AddDate(0, 0, -45))

	store.On("ListCompletedBefore", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Trade{old}, nil)
	blob.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("bucket unreachable"))

	a := New(store, blob, 30, time.Hour, testLogger())
	err := a.runOnce(context.Background())
	require.Error(t, err)

	store.AssertNotCalled(t, "DeleteCompletedBefore", mock.Anything, mock.Anything)
}

func TestArchiverCutoffRespectsRetention(t *testing.T) {
	store := new(MockTradeStore)
	blob := new(MockBlobWriter)

	var captured time.Time
	store.On("ListCompletedBefore", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		captured = cutoff
		return true
	})).Return([]domain.Trade{}, nil)

	a := New(store, blob, 7, time.Hour, testLogger())
	require.NoError(t, a.runOnce(context.Background()))

	want := time.Now().UTC().AddDate(0, 0, -7)
	assert.WithinDuration(t, want, captured, 5*time.Second)
}
