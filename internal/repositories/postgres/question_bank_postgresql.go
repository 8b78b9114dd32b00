package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

// SequencePostgreSQL hands out per-bank question numbers.
type SequencePostgreSQL struct {
	db *gorm.DB
}

func NewSequencePostgreSQL(db *gorm.DB) repositories.SequenceRepository {
	return &SequencePostgreSQL{db: db}
}

// sequenceSeedSQL is the highest numeric suffix of the bank's question ids, or the
// question count when that is larger. It mirrors repositories.SequenceSeed.
const sequenceSeedSQL = `SELECT GREATEST(COUNT(*), COALESCE(MAX(CAST(substring(question_id FROM '[0-9]+$') AS BIGINT)), 0)) FROM questions WHERE bank = ?`

const nextSequenceSQL = `
INSERT INTO bank_sequences (bank, value, updated_at)
VALUES (?, (` + sequenceSeedSQL + `) + 1, ?)
ON CONFLICT (bank) DO UPDATE
SET value = bank_sequences.value + 1, updated_at = EXCLUDED.updated_at
RETURNING value`

// Next runs a single upsert so concurrent callers serialize on the row lock and
// each receives a distinct value.
func (r *SequencePostgreSQL) Next(ctx context.Context, bank string) (int64, error) {
	var value int64
	if err := r.db.WithContext(ctx).Raw(nextSequenceSQL, bank, bank, time.Now()).Scan(&value).Error; err != nil {
		return 0, translateError(err, "advance bank sequence")
	}
	return value, nil
}

func (r *SequencePostgreSQL) Current(ctx context.Context, bank string) (int64, error) {
	var seq models.BankSequence
	err := r.db.WithContext(ctx).Where("bank = ?", bank).First(&seq).Error
	if err == nil {
		return seq.Value, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, translateError(err, "read bank sequence")
	}

	var seed int64
	if err := r.db.WithContext(ctx).Raw(sequenceSeedSQL, bank).Scan(&seed).Error; err != nil {
		return 0, translateError(err, "seed bank sequence")
	}
	return seed, nil
}
