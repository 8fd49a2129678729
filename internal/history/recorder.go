// Package history records weather searches per session.
package history

import (
	"context"

	"github.com/crut0i/weatherapp/internal/storage"
)

// Store is the subset of the relational store the recorder needs.
type Store interface {
	AddHistory(ctx context.Context, rec *storage.History) error
	GetHistory(ctx context.Context, sessionID string) ([]storage.History, error)
}

// Recorder appends and reads search history. Writes are opportunistic: the
// caller is expected to log and swallow the error rather than fail the
// weather response.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Add appends one record for the session.
func (r *Recorder) Add(ctx context.Context, sessionID, city, country string, latitude, longitude float64) error {
	return r.store.AddHistory(ctx, &storage.History{
		SessionID: sessionID,
		City:      city,
		Country:   country,
		Latitude:  latitude,
		Longitude: longitude,
	})
}

// BySession returns the session's records in storage order.
// storage.ErrNotFound is returned when there are none.
func (r *Recorder) BySession(ctx context.Context, sessionID string) ([]storage.History, error) {
	return r.store.GetHistory(ctx, sessionID)
}
