package repositories

import (
	"context"

	"github.com/certlab/analysis-service/internal/models"
)

// AttemptRepository reads the quiz-attempt history feeding the aggregator.
type AttemptRepository interface {
	// GetHistory returns every completed attempt for the user, most recent
	// first, with question attempts and their questions preloaded.
	GetHistory(ctx context.Context, userID uint) ([]*models.QuizAttempt, error)

	// GetGroupedAggregates runs the grouping aggregate queries (category,
	// service, difficulty, time metrics) over the user's completed attempts.
	GetGroupedAggregates(ctx context.Context, userID uint) (*GroupedAggregates, error)
}
