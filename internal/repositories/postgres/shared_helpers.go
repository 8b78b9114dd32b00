package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/highspring-tester/hat/internal/repositories"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// translateError maps gorm errors onto repository sentinels, keeping op as context.
func translateError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicateKey)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// ApplyCandidateFilters applies common filters to candidate queries
func ApplyCandidateFilters(query *gorm.DB, filters repositories.CandidateFilters) *gorm.DB {
	if filters.Program != "" {
		query = query.Where("program = ?", filters.Program)
	}
	if filters.Project != "" {
		query = query.Where("project = ?", filters.Project)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Finished != nil {
		if *filters.Finished {
			query = query.Where("result <> ''")
		} else {
			query = query.Where("result = ''")
		}
	}
	return query
}

// ApplyPagination clamps limit and applies offset
func ApplyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
