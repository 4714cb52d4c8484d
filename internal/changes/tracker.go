// Package changes decides whether a fetched source needs (re)processing by comparing
// content fingerprints against the ones recorded on previous runs.
package changes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"go.uber.org/zap"
)

// Tracker is the single authority on whether a source's content has changed.
type Tracker struct {
	store  storage.Storage
	now    func() time.Time
	logger *zap.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the time source used for last_processed_at.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a tracker backed by store.
func NewTracker(store storage.Storage, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fingerprint returns the hex SHA-256 digest of raw.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ShouldProcess reports whether raw differs from what was last recorded for url.
// When it does (or url is new), the new fingerprint is stored with the current time
// before returning. Identical content returns false and leaves state untouched.
func (t *Tracker) ShouldProcess(ctx context.Context, candidate *models.Candidate) (bool, string, error) {
	fp := Fingerprint(candidate.Raw)
	existing, err := t.store.GetSource(ctx, candidate.URL)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fp, fmt.Errorf("lookup source %s: %w: %w", candidate.URL, models.ErrIndexFailure, err)
	}
	if existing != nil && existing.Fingerprint == fp {
		if t.logger != nil {
			t.logger.Debug("source unchanged", zap.String("url", candidate.URL))
		}
		return false, fp, nil
	}

	src := &models.Source{
		URL:             candidate.URL,
		Kind:            candidate.Kind,
		Title:           candidate.Title,
		Fingerprint:     fp,
		LastProcessedAt: t.now(),
		Status:          models.StatusChanged,
	}
	if err := t.store.UpsertSource(ctx, src); err != nil {
		return false, fp, fmt.Errorf("record fingerprint %s: %w: %w", candidate.URL, models.ErrIndexFailure, err)
	}
	if t.logger != nil {
		t.logger.Debug("source changed or new",
			zap.String("url", candidate.URL),
			zap.Bool("new", existing == nil),
			zap.String("fingerprint", fp[:12]),
		)
	}
	return true, fp, nil
}

// MarkFailed clears the stored fingerprint so the next run reprocesses url even if its
// bytes are unchanged. Used when indexing fails after ShouldProcess returned true.
func (t *Tracker) MarkFailed(ctx context.Context, candidate *models.Candidate) error {
	src := &models.Source{
		URL:             candidate.URL,
		Kind:            candidate.Kind,
		Title:           candidate.Title,
		LastProcessedAt: t.now(),
		Status:          models.StatusFailed,
	}
	if err := t.store.UpsertSource(ctx, src); err != nil {
		return fmt.Errorf("mark failed %s: %w", candidate.URL, err)
	}
	return nil
}

// Reset forgets every fingerprint, forcing full reprocessing on the next run.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.ResetSources(ctx); err != nil {
		return fmt.Errorf("reset sources: %w", err)
	}
	if t.logger != nil {
		t.logger.Info("change tracker reset")
	}
	return nil
}
