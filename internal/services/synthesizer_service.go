package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// TextGenerator is the seam over the generative backend: opaque text in,
// opaque text out. The production implementation wraps the Gemini client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SynthesizerService sends a performance summary to the generative backend
// and validates the structured report it returns. Exactly one network call
// per invocation; retry policy belongs to the caller.
type SynthesizerService interface {
	Synthesize(ctx context.Context, summary *PerformanceSummary) (*SynthesizedReport, error)
}

// requiredSections are the top-level keys every synthesized report must carry.
// Validation is a shallow presence check; the internal structure of each
// section is trusted once presence is confirmed.
var requiredSections = []string{
	"metadata",
	"overview",
	"performance_breakdown",
	"question_analysis",
	"recommendations",
	"progress_tracking",
}

// SynthesizedReport is the validated output of the generative backend.
type SynthesizedReport struct {
	// Payload is the raw validated JSON document, stored as-is.
	Payload json.RawMessage `json:"payload"`

	sections map[string]json.RawMessage
}

// ReadinessScore extracts the scalar readiness score from the report's
// overview section; 0 when the backend did not include one.
func (r *SynthesizedReport) ReadinessScore() float64 {
	var overview struct {
		ReadinessScore any `json:"readiness_score"`
	}
	if err := json.Unmarshal(r.sections["overview"], &overview); err != nil {
		return 0
	}
	return coerceFloat(overview.ReadinessScore)
}

type synthesizerService struct {
	generator TextGenerator
	logger    *slog.Logger
}

func NewSynthesizerService(generator TextGenerator, logger *slog.Logger) SynthesizerService {
	return &synthesizerService{
		generator: generator,
		logger:    logger,
	}
}

func (s *synthesizerService) Synthesize(ctx context.Context, summary *PerformanceSummary) (*SynthesizedReport, error) {
	prompt, err := buildReportPrompt(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	block := extractJSONBlock(raw)

	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &sections); err != nil {
		s.logger.Warn("Synthesizer returned unparseable output", "error", err, "output_len", len(raw))
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var missing []string
	for _, section := range requiredSections {
		if _, ok := sections[section]; !ok {
			missing = append(missing, section)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteOutput, strings.Join(missing, ", "))
	}

	return &SynthesizedReport{
		Payload:  json.RawMessage(block),
		sections: sections,
	}, nil
}

func buildReportPrompt(summary *PerformanceSummary) (string, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are an exam-readiness coach analyzing a student's practice performance.\n")
	b.WriteString("Based on the structured performance data below, produce a JSON report with exactly these top-level keys: ")
	b.WriteString(strings.Join(requiredSections, ", "))
	b.WriteString(".\n")
	b.WriteString("The overview section must include a numeric readiness_score between 0 and 100.\n")
	b.WriteString("Respond with the JSON document only, no surrounding commentary.\n\n")
	b.WriteString("Performance data:\n")
	b.Write(data)
	return b.String(), nil
}

// extractJSONBlock locates the structured portion of the model's reply. The
// backend sometimes wraps its JSON in a fenced code block inside explanatory
// prose, and sometimes emits bare JSON with leading or trailing text.
func extractJSONBlock(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if start := strings.Index(trimmed, "```"); start >= 0 {
		rest := trimmed[start+3:]
		// Skip an optional language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			tag := strings.TrimSpace(rest[:nl])
			if tag == "" || tag == "json" || tag == "JSON" {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}

	first := strings.IndexByte(trimmed, '{')
	last := strings.LastIndexByte(trimmed, '}')
	if first >= 0 && last > first {
		return trimmed[first : last+1]
	}
	return trimmed
}

// ===== GEMINI BACKEND =====

type geminiGenerator struct {
	model *genai.GenerativeModel
}

// NewGeminiGenerator wraps a configured Gemini model as a TextGenerator.
func NewGeminiGenerator(model *genai.GenerativeModel) TextGenerator {
	return &geminiGenerator{model: model}
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return out.String(), nil
}
