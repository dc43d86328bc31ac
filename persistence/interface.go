package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/gravesugoroku/models"
)

// Database 数据库接口. Records are written once and never read back into a
// running table.
type Database interface {
	SaveRound(ctx context.Context, rec models.RoundRecord) error
	SaveMatch(ctx context.Context, rec models.MatchRecord) error
	// ListMatches returns the most recently finished matches first.
	ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error)
	Close() error
}

// 错误定义
var (
	ErrUnknownDriver = errors.New("unknown database driver")
)

// MaxListLimit caps ListMatches.
const MaxListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
