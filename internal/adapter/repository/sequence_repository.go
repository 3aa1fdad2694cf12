package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wekeepgrowing/portal-billing/internal/domain/repository"
)

// upsertSequenceSQL increments the counter in one statement; the row lock
// taken by the upsert serialises concurrent callers.
const upsertSequenceSQL = `INSERT INTO document_sequences (scope, year, last_value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (scope, year) DO UPDATE
SET last_value = document_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *gorm.DB) repository.SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) Next(ctx context.Context, scope string, year int) (int64, error) {
	var value int64
	if err := conn(ctx, r.db).Raw(upsertSequenceSQL, scope, year, time.Now()).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence for %d: %w", scope, year, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("sequence %s/%d returned no value", scope, year)
	}
	return value, nil
}
