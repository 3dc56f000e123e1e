// Package archive periodically exports old completed trades to object storage
// and prunes them from the database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Enchanted-Dev-stack/live-trade-api-zinoova/internal/domain"
)

// BlobWriter uploads archive objects. Satisfied by s3blob.Writer.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports completed trades older than the retention window to object
// storage as JSON Lines, then deletes them. Live trades are never touched.
type Archiver struct {
	store         domain.TradeStore
	blob          BlobWriter
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

// New creates an Archiver. interval controls how often a sweep runs;
// retentionDays is how long completed trades stay in the database.
func New(store domain.TradeStore, blob BlobWriter, retentionDays int, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:         store,
		blob:          blob,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run sweeps on a ticker until ctx is cancelled. A failed sweep is logged and
// retried at the next tick; trades are only deleted after a successful upload.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "archiver started",
		slog.Int("retention_days", a.retentionDays),
		slog.Duration("interval", a.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.runOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// runOnce performs a single archive sweep: list, upload, delete.
func (a *Archiver) runOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.retentionDays)

	trades, err := a.store.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive: list completed trades: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	body, err := encodeJSONL(trades)
	if err != nil {
		return fmt.Errorf("archive: encode trades: %w", err)
	}

	key := fmt.Sprintf("trades/%s.jsonl", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if err := a.blob.Put(ctx, key, bytes.NewReader(body), "application/x-ndjson"); err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}

	deleted, err := a.store.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive: prune after upload of %s: %w", key, err)
	}

	a.logger.InfoContext(ctx, "archived completed trades",
		slog.String("object", key),
		slog.Int("archived", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return nil
}

// encodeJSONL renders trades as newline-delimited JSON, one trade per line.
func encodeJSONL(trades []domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
