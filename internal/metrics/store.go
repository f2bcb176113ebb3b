package metrics

import (
	"context"
	"time"

	"github.com/aanand-mishra/students-form/internal/storage"
	"github.com/aanand-mishra/students-form/internal/types"
)

// InstrumentedStore wraps a storage.Storage and records every call.
type InstrumentedStore struct {
	next storage.Storage
	m    *Metrics
}

// Instrument returns next wrapped with metrics.
func Instrument(next storage.Storage, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, m: m}
}

func (s *InstrumentedStore) Load(ctx context.Context) (types.Dataset, error) {
	start := time.Now()
	ds, err := s.next.Load(ctx)
	s.m.ObserveStore("load", start, err)
	return ds, err
}

func (s *InstrumentedStore) Save(ctx context.Context, ds types.Dataset) error {
	start := time.Now()
	err := s.next.Save(ctx, ds)
	s.m.ObserveStore("save", start, err)
	return err
}
