package barcache

import (
	"context"

	"PullbackScanner/internal/model"
)

// NoopStore never hits. Used when the cache backend is "none".
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Get(_ context.Context, _ string) ([]model.OHLCV, bool, error) {
	return nil, false, nil
}
func (n *NoopStore) Put(_ context.Context, _ string, _ []model.OHLCV) error { return nil }
func (n *NoopStore) Close() error                                          { return nil }
