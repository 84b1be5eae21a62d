package repositories

// ===== SHARED AGGREGATE STRUCTS =====

// BucketAggregate is one grouping row of the per-user performance aggregates
// (one bucket of the category, service or difficulty breakdown).
//
// Numeric fields are deliberately `any`: the rows come out of raw SQL
// aggregate queries and the scan type depends on the driver and column type
// (int64 for counts, float64 or numeric-as-string for averages). The metrics
// aggregator owns coercion to float64.
type BucketAggregate struct {
	Label            string `json:"label"`
	TotalQuestions   any    `json:"total_questions"`
	CorrectQuestions any    `json:"correct_questions"`
	AccuracyPct      any    `json:"accuracy_pct"`
	AvgTimeSecs      any    `json:"avg_time_secs"`
}

// TimeAggregates carries the raw per-user time metrics.
type TimeAggregates struct {
	TotalTimeSecs      any `json:"total_time_secs"`
	AvgTimePerQuestion any `json:"avg_time_per_question"`
	FastestAnswerSecs  any `json:"fastest_answer_secs"`
	SlowestAnswerSecs  any `json:"slowest_answer_secs"`
}

// GroupedAggregates bundles every precomputed grouping the aggregator needs
// for one user, so a single repository call feeds the whole summary.
type GroupedAggregates struct {
	ByCategory   []BucketAggregate `json:"by_category"`
	ByService    []BucketAggregate `json:"by_service"`
	ByDifficulty []BucketAggregate `json:"by_difficulty"`
	Time         TimeAggregates    `json:"time"`
}
