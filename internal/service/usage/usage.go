// Package usage provides the usage ledger: a persistent record of the tool invocations served by toolserver.
package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/skedyul/toolserver/internal/model"
	"github.com/skedyul/toolserver/pkg/types"
	"gorm.io/gorm"
)

// ErrInvalidLimit is returned when a listing is requested with a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// UsageService records tool invocations and aggregates them into usage summaries.
type UsageService struct {
	db *gorm.DB
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db}
}

// Record appends an invocation to the ledger.
func (u *UsageService) Record(ctx context.Context, inv *model.Invocation) error {
	if inv.InvocationID == "" {
		return errors.New("invocation id is required")
	}
	if err := u.db.WithContext(ctx).Create(inv).Error; err != nil {
		return fmt.Errorf("failed to record invocation %s: %w", inv.InvocationID, err)
	}
	return nil
}

// Summarize aggregates the ledger by tool and mode.
// If toolName is not empty, only the invocations of that tool are considered.
func (u *UsageService) Summarize(ctx context.Context, toolName string) (*types.UsageSummary, error) {
	q := u.db.WithContext(ctx).
		Model(&model.Invocation{}).
		Select(
			"tool, mode, COUNT(*) AS calls, "+
				"SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END) AS failures, "+
				"COALESCE(SUM(credits), 0) AS credits",
			model.InvocationOutcomeFailure,
		)
	if toolName != "" {
		q = q.Where("tool = ?", toolName)
	}

	var rows []types.ToolUsage
	if err := q.Group("tool, mode").Order("tool, mode").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}

	summary := &types.UsageSummary{Tools: rows}
	if summary.Tools == nil {
		summary.Tools = []types.ToolUsage{}
	}
	for _, r := range rows {
		summary.TotalCalls += r.Calls
		summary.TotalCredits += r.Credits
	}
	return summary, nil
}

// ListRecent returns the most recent invocations, newest first.
func (u *UsageService) ListRecent(ctx context.Context, limit int) ([]*model.Invocation, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var invocations []*model.Invocation
	if err := u.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&invocations).Error; err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	return invocations, nil
}
