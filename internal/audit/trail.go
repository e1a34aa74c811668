// Package audit keeps a bounded, time-limited trail of domain events that
// staff can browse or export per restaurant.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"restobook/internal/clock"
	"restobook/internal/events"
	"restobook/internal/report"
)

const (
	DefaultCapacity      = 10000
	DefaultRetentionDays = 31
)

// Entry is one recorded event.
type Entry struct {
	EventID      string          `json:"id"`
	Type         string          `json:"type"`
	RestaurantID int64           `json:"restaurantId"`
	Payload      json.RawMessage `json:"payload"`
	RecordedAt   time.Time       `json:"recordedAt"`
}

// Trail stores entries oldest first. Entries beyond capacity or older than
// the retention window are dropped.
type Trail struct {
	mu        sync.RWMutex
	entries   []Entry
	capacity  int
	retention time.Duration
	clock     clock.Clock
	logger    zerolog.Logger
}

func NewTrail(capacity, retentionDays int, clk clock.Clock, logger zerolog.Logger) *Trail {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Trail{
		capacity:  capacity,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		clock:     clk,
		logger:    logger.With().Str("component", "audit").Logger(),
	}
}

// Record is an events.EventHandler.
func (t *Trail) Record(e events.Event) error {
	var ref struct {
		RestaurantID int64 `json:"restaurantId"`
	}
	if err := json.Unmarshal(e.Payload, &ref); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}

	entry := Entry{
		EventID:      e.ID,
		Type:         e.Type,
		RestaurantID: ref.RestaurantID,
		Payload:      append(json.RawMessage(nil), e.Payload...),
		RecordedAt:   t.clock.Now(),
	}

	t.logger.Info().
		Str("event_id", entry.EventID).
		Str("type", entry.Type).
		Int64("restaurant_id", entry.RestaurantID).
		RawJSON("payload", entry.Payload).
		Msg("Event recorded")

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.capacity; over > 0 {
		t.entries = append([]Entry(nil), t.entries[over:]...)
	}
	t.mu.Unlock()
	return nil
}

// Recent returns up to limit entries of a restaurant, newest first.
// A non-positive limit returns all of them.
func (t *Trail) Recent(restaurantID int64, limit int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0)
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].RestaurantID != restaurantID {
			continue
		}
		out = append(out, t.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Cleanup drops entries older than the retention window and returns how many were removed.
func (t *Trail) Cleanup() int {
	cutoff := t.clock.Now().Add(-t.retention)

	t.mu.Lock()
	defer t.mu.Unlock()

	keep := 0
	for keep < len(t.entries) && t.entries[keep].RecordedAt.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0
	}
	t.entries = append([]Entry(nil), t.entries[keep:]...)
	t.logger.Info().Int("removed", keep).Msg("Old audit entries removed")
	return keep
}

// WriteEntries renders entries as a single audit sheet.
func WriteEntries(w report.SheetWriter, entries []Entry) error {
	if err := w.Sheet(report.AuditLayout); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Row(e.RecordedAt.Format(time.RFC3339), e.EventID, e.Type, string(e.Payload)); err != nil {
			return err
		}
	}
	return nil
}

// Filename names the audit export of a restaurant, e.g. "audit_1_2025-06.xlsx".
func Filename(restaurantID int64, at time.Time) string {
	return fmt.Sprintf("audit_%d_%s.xlsx", restaurantID, at.Format("2006-01"))
}
