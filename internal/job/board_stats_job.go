package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/tanaka-0224/Iverse2/internal/metrics"
)

// BoardCounter counts stored boards
type BoardCounter interface {
	Count(ctx context.Context) (int64, error)
}

// BoardStatsJob refreshes the boards_total gauge
type BoardStatsJob struct {
	boards  BoardCounter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewBoardStatsJob(boards BoardCounter, m *metrics.Metrics, logger *zap.Logger) *BoardStatsJob {
	return &BoardStatsJob{
		boards:  boards,
		metrics: m,
		logger:  logger,
	}
}

func (j *BoardStatsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	count, err := j.boards.Count(ctx)
	if err != nil {
		// keep the last known value
		j.logger.Warn("Failed to count boards", zap.Error(err))
		return
	}
	j.metrics.SetBoardsTotal(count)
	j.logger.Debug("Board stats refreshed", zap.Int64("boards_total", count))
}
