// Package store persists the "last downloaded day" marker that drives the
// since-last-download quick select.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bhavcopy-calendar/internal/markethours"
)

// MarkerKey is the single key the marker lives under in every backend.
const MarkerKey = "bhavcopyLastDate"

var (
	// ErrNoMarker means no download has been recorded yet.
	ErrNoMarker = errors.New("no download history")
	// ErrCorruptMarker means a stored marker could not be parsed. It is
	// treated as absent history; callers must not substitute a date.
	ErrCorruptMarker = errors.New("corrupt download history")
)

// MarkerStore holds the raw marker string. Backends return ErrNoMarker from
// Get when nothing is stored.
type MarkerStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Delete(ctx context.Context) error
}

// EncodeMarker formats d as the stored ISO-8601 value.
func EncodeMarker(d time.Time) string {
	return markethours.Day(d).Format(time.RFC3339)
}

// DecodeMarker parses a stored value. Both the RFC 3339 instants this
// package writes and bare "2006-01-02" days are accepted.
func DecodeMarker(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := markethours.ParseISO(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrCorruptMarker, s)
	}
	return markethours.Day(t), nil
}

// LastDownloaded returns the recorded day. A corrupt marker is deleted and
// reported as ErrCorruptMarker so the caller falls back to a manual pick.
func LastDownloaded(ctx context.Context, s MarkerStore) (time.Time, error) {
	raw, err := s.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	d, err := DecodeMarker(raw)
	if err != nil {
		if derr := s.Delete(ctx); derr != nil {
			return time.Time{}, fmt.Errorf("%w (delete failed: %v)", err, derr)
		}
		return time.Time{}, err
	}
	return d, nil
}

// RecordDownloaded stores d as the last downloaded day.
func RecordDownloaded(ctx context.Context, s MarkerStore, d time.Time) error {
	return s.Set(ctx, EncodeMarker(d))
}

// Memory is an in-process MarkerStore.
type Memory struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", ErrNoMarker
	}
	return m.value, nil
}

func (m *Memory) Set(ctx context.Context, value string) error {
	m.mu.Lock()
	m.value, m.set = value, true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context) error {
	m.mu.Lock()
	m.value, m.set = "", false
	m.mu.Unlock()
	return nil
}
