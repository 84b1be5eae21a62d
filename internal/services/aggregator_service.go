package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories"
)

// AggregatorService turns a user's raw attempt history plus precomputed
// grouping aggregates into a single structured performance summary. It is a
// pure transformation: no I/O, no clock reads beyond the supplied data.
type AggregatorService interface {
	// BuildSummary expects attempts ordered most-recent-first, as returned by
	// AttemptRepository.GetHistory. Returns ErrNoAttempts for an empty history.
	BuildSummary(attempts []*models.QuizAttempt, aggregates *repositories.GroupedAggregates) (*PerformanceSummary, error)
}

// ===== DATA STRUCTURES =====

// TimeValue dual-encodes a duration: raw seconds plus a display string.
type TimeValue struct {
	Seconds float64 `json:"seconds"`
	Display string  `json:"display"`
}

type BreakdownBucket struct {
	Label            string  `json:"label"`
	TotalQuestions   float64 `json:"total_questions"`
	CorrectQuestions float64 `json:"correct_questions"`
	AccuracyPct      float64 `json:"accuracy_pct"`
}

type DifficultyBucket struct {
	Label              string    `json:"label"`
	TotalQuestions     float64   `json:"total_questions"`
	CorrectQuestions   float64   `json:"correct_questions"`
	AccuracyPct        float64   `json:"accuracy_pct"`
	AvgTimePerQuestion TimeValue `json:"avg_time_per_question"`
}

type TimeMetrics struct {
	TotalTime          TimeValue `json:"total_time"`
	AvgTimePerQuestion TimeValue `json:"avg_time_per_question"`
	FastestAnswer      TimeValue `json:"fastest_answer"`
	SlowestAnswer      TimeValue `json:"slowest_answer"`
}

type TrendPoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
	// Improvement is the signed delta from the previous point in
	// chronological order; the first point is always 0.
	Improvement float64 `json:"improvement"`
}

type QuestionDetail struct {
	AttemptID      uint      `json:"attempt_id"`
	QuestionID     uint      `json:"question_id"`
	QuestionText   string    `json:"question_text"`
	Category       string    `json:"category"`
	Service        string    `json:"service"`
	Difficulty     string    `json:"difficulty"`
	IsCorrect      bool      `json:"is_correct"`
	TimeSpent      TimeValue `json:"time_spent"`
	UserAnswers    []string  `json:"user_answers"`
	CorrectAnswers []string  `json:"correct_answers"`
}

// PerformanceSummary is the transient aggregation result handed to the report
// synthesizer. It is never persisted; only the synthesized report is.
type PerformanceSummary struct {
	// Top-line scalars, all derived from the most recent attempt.
	CurrentScore     float64   `json:"current_score"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectQuestions int       `json:"correct_questions"`
	AttemptDuration  TimeValue `json:"attempt_duration"`
	LastAttemptAt    time.Time `json:"last_attempt_at"`

	AttemptCount int `json:"attempt_count"`

	CategoryBreakdown   []BreakdownBucket  `json:"category_breakdown"`
	ServiceBreakdown    []BreakdownBucket  `json:"service_breakdown"`
	DifficultyBreakdown []DifficultyBucket `json:"difficulty_breakdown"`

	TimeMetrics TimeMetrics  `json:"time_metrics"`
	ScoreTrend  []TrendPoint `json:"score_trend"`

	QuestionDetails []QuestionDetail `json:"question_details"`
}

// answerDelimiter separates the options of a stored multi-select answer.
const answerDelimiter = ","

type aggregatorService struct{}

func NewAggregatorService() AggregatorService {
	return &aggregatorService{}
}

func (s *aggregatorService) BuildSummary(attempts []*models.QuizAttempt, aggregates *repositories.GroupedAggregates) (*PerformanceSummary, error) {
	if len(attempts) == 0 {
		return nil, ErrNoAttempts
	}

	primary := attempts[0]

	correct := 0
	for _, qa := range primary.QuestionAttempts {
		if qa.IsCorrect {
			correct++
		}
	}

	lastAt := primary.StartedAt
	if primary.CompletedAt != nil {
		lastAt = *primary.CompletedAt
	}

	summary := &PerformanceSummary{
		CurrentScore:        primary.PercentageScore,
		TotalQuestions:      len(primary.QuestionAttempts),
		CorrectQuestions:    correct,
		AttemptDuration:     newTimeValue(float64(primary.TimeSpentSecs)),
		LastAttemptAt:       lastAt,
		AttemptCount:        len(attempts),
		CategoryBreakdown:   buildBreakdown(aggregates.ByCategory),
		ServiceBreakdown:    buildBreakdown(aggregates.ByService),
		DifficultyBreakdown: buildDifficultyBreakdown(aggregates.ByDifficulty),
		TimeMetrics: TimeMetrics{
			TotalTime:          newTimeValue(coerceFloat(aggregates.Time.TotalTimeSecs)),
			AvgTimePerQuestion: newTimeValue(coerceFloat(aggregates.Time.AvgTimePerQuestion)),
			FastestAnswer:      newTimeValue(coerceFloat(aggregates.Time.FastestAnswerSecs)),
			SlowestAnswer:      newTimeValue(coerceFloat(aggregates.Time.SlowestAnswerSecs)),
		},
		ScoreTrend:      buildScoreTrend(attempts),
		QuestionDetails: buildQuestionDetails(attempts),
	}

	return summary, nil
}

func buildBreakdown(rows []repositories.BucketAggregate) []BreakdownBucket {
	buckets := make([]BreakdownBucket, 0, len(rows))
	for _, row := range rows {
		total := coerceFloat(row.TotalQuestions)
		if total <= 0 {
			continue
		}
		buckets = append(buckets, BreakdownBucket{
			Label:            row.Label,
			TotalQuestions:   total,
			CorrectQuestions: coerceFloat(row.CorrectQuestions),
			AccuracyPct:      coerceFloat(row.AccuracyPct),
		})
	}
	return buckets
}

func buildDifficultyBreakdown(rows []repositories.BucketAggregate) []DifficultyBucket {
	buckets := make([]DifficultyBucket, 0, len(rows))
	for _, row := range rows {
		total := coerceFloat(row.TotalQuestions)
		if total <= 0 {
			continue
		}
		buckets = append(buckets, DifficultyBucket{
			Label:              row.Label,
			TotalQuestions:     total,
			CorrectQuestions:   coerceFloat(row.CorrectQuestions),
			AccuracyPct:        coerceFloat(row.AccuracyPct),
			AvgTimePerQuestion: newTimeValue(coerceFloat(row.AvgTimeSecs)),
		})
	}
	return buckets
}

// buildScoreTrend walks attempts in chronological order (the input is
// most-recent-first) and attaches one improvement delta per point.
func buildScoreTrend(attempts []*models.QuizAttempt) []TrendPoint {
	trend := make([]TrendPoint, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		attempt := attempts[i]
		date := attempt.StartedAt
		if attempt.CompletedAt != nil {
			date = *attempt.CompletedAt
		}

		point := TrendPoint{Date: date, Score: attempt.PercentageScore}
		if n := len(trend); n > 0 {
			point.Improvement = point.Score - trend[n-1].Score
		}
		trend = append(trend, point)
	}
	return trend
}

func buildQuestionDetails(attempts []*models.QuizAttempt) []QuestionDetail {
	var details []QuestionDetail
	for _, attempt := range attempts {
		for _, qa := range attempt.QuestionAttempts {
			details = append(details, QuestionDetail{
				AttemptID:      attempt.ID,
				QuestionID:     qa.QuestionID,
				QuestionText:   qa.Question.Text,
				Category:       qa.Question.Category,
				Service:        qa.Question.Service,
				Difficulty:     string(qa.Question.Difficulty),
				IsCorrect:      qa.IsCorrect,
				TimeSpent:      newTimeValue(float64(qa.TimeSpentSecs)),
				UserAnswers:    splitAnswers(qa.UserAnswer),
				CorrectAnswers: splitAnswers(qa.Question.CorrectAnswer),
			})
		}
	}
	return details
}

func splitAnswers(raw string) []string {
	parts := strings.Split(raw, answerDelimiter)
	answers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			answers = append(answers, trimmed)
		}
	}
	return answers
}

// coerceFloat normalizes the scan types raw SQL aggregates produce (int64
// counts, float64 averages, numeric columns as strings or bytes). Anything
// non-numeric or missing coerces to 0.
func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func newTimeValue(seconds float64) TimeValue {
	return TimeValue{Seconds: seconds, Display: formatDuration(seconds)}
}

// formatDuration renders seconds as a compact human string: "1h 45m",
// "12m 30s", "42s".
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds + 0.5)

	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
