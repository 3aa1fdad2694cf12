package repository

import "context"

// SequenceRepository hands out document numbers.
type SequenceRepository interface {
	// Next atomically increments and returns the counter for scope and year.
	// Concurrent callers never observe the same value.
	Next(ctx context.Context, scope string, year int) (int64, error)
}
