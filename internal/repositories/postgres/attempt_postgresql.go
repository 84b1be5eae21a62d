package postgres

import (
	"context"
	"fmt"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
	"gorm.io/gorm"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) GetHistory(ctx context.Context, userID uint) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	err := a.db.WithContext(ctx).
		Preload("QuestionAttempts").
		Preload("QuestionAttempts.Question").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// bucketRow mirrors one grouping row of the aggregate queries. Scan types for
// the numeric columns vary with the driver (bigint counts come back as int64,
// numeric averages as float64 or string), so they stay `any` and the metrics
// aggregator coerces them.
type bucketRow struct {
	Label            string `gorm:"column:label"`
	TotalQuestions   any    `gorm:"column:total_questions"`
	CorrectQuestions any    `gorm:"column:correct_questions"`
	AccuracyPct      any    `gorm:"column:accuracy_pct"`
	AvgTimeSecs      any    `gorm:"column:avg_time_secs"`
}

const bucketQuery = `
SELECT q.%s AS label,
       COUNT(*) AS total_questions,
       COUNT(*) FILTER (WHERE qa.is_correct) AS correct_questions,
       ROUND(100.0 * COUNT(*) FILTER (WHERE qa.is_correct) / COUNT(*), 2) AS accuracy_pct,
       AVG(qa.time_spent_secs) AS avg_time_secs
FROM question_attempts qa
JOIN questions q ON q.id = qa.question_id
JOIN quiz_attempts a ON a.id = qa.quiz_attempt_id
WHERE a.user_id = ? AND a.completed_at IS NOT NULL
GROUP BY q.%s
ORDER BY q.%s`

func (a AttemptPostgreSQL) groupedBuckets(ctx context.Context, userID uint, column string) ([]repositories.BucketAggregate, error) {
	// column is one of the fixed grouping identifiers (category, service,
	// difficulty), never user input.
	var rows []bucketRow
	query := fmt.Sprintf(bucketQuery, column, column, column)
	if err := a.db.WithContext(ctx).Raw(query, userID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	buckets := make([]repositories.BucketAggregate, 0, len(rows))
	for _, r := range rows {
		buckets = append(buckets, repositories.BucketAggregate{
			Label:            r.Label,
			TotalQuestions:   r.TotalQuestions,
			CorrectQuestions: r.CorrectQuestions,
			AccuracyPct:      r.AccuracyPct,
			AvgTimeSecs:      r.AvgTimeSecs,
		})
	}
	return buckets, nil
}

func (a AttemptPostgreSQL) GetGroupedAggregates(ctx context.Context, userID uint) (*repositories.GroupedAggregates, error) {
	byCategory, err := a.groupedBuckets(ctx, userID, "category")
	if err != nil {
		return nil, err
	}
	byService, err := a.groupedBuckets(ctx, userID, "service")
	if err != nil {
		return nil, err
	}
	byDifficulty, err := a.groupedBuckets(ctx, userID, "difficulty")
	if err != nil {
		return nil, err
	}

	var timeRow struct {
		TotalTimeSecs      any `gorm:"column:total_time_secs"`
		AvgTimePerQuestion any `gorm:"column:avg_time_per_question"`
		FastestAnswerSecs  any `gorm:"column:fastest_answer_secs"`
		SlowestAnswerSecs  any `gorm:"column:slowest_answer_secs"`
	}
	err = a.db.WithContext(ctx).Raw(`
SELECT COALESCE(SUM(qa.time_spent_secs), 0) AS total_time_secs,
       AVG(qa.time_spent_secs) AS avg_time_per_question,
       MIN(qa.time_spent_secs) AS fastest_answer_secs,
       MAX(qa.time_spent_secs) AS slowest_answer_secs
FROM question_attempts qa
JOIN quiz_attempts a ON a.id = qa.quiz_attempt_id
WHERE a.user_id = ? AND a.completed_at IS NOT NULL`, userID).Scan(&timeRow).Error
	if err != nil {
		return nil, err
	}

	return &repositories.GroupedAggregates{
		ByCategory:   byCategory,
		ByService:    byService,
		ByDifficulty: byDifficulty,
		Time: repositories.TimeAggregates{
			TotalTimeSecs:      timeRow.TotalTimeSecs,
			AvgTimePerQuestion: timeRow.AvgTimePerQuestion,
			FastestAnswerSecs:  timeRow.FastestAnswerSecs,
			SlowestAnswerSecs:  timeRow.SlowestAnswerSecs,
		},
	}, nil
}
