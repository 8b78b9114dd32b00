package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateBankCache drops the cached question list and stats of a bank.
func InvalidateBankCache(ctx context.Context, cm *CacheManager, bank string) {
	SafeDelete(ctx, cm.Bank, bank)
	SafeDelete(ctx, cm.Stats, bank)
}

// InvalidateAllBanks drops every cached bank entry.
func InvalidateAllBanks(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Bank, "*")
	SafeInvalidatePattern(ctx, cm.Stats, "*")
}
