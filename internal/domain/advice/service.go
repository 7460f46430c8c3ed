package advice

import (
	"context"
	"log/slog"
	"time"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
	"github.com/yanqian/meteo-burkina/pkg/util"
)

// Fixed generation settings for every advice request.
const (
	GenerationTemperature     float32 = 0.7
	GenerationMaxOutputTokens int32   = 400
)

// Generator produces free text for a prompt. Implementations report a
// missing candidate text as an error.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Service produces plan-aware weather advice.
type Service interface {
	GetAdvice(ctx context.Context, snap weather.Snapshot, tier plan.Tier) Result
}

type service struct {
	generator Generator
	tokens    *metrics.TokenCounter
	metrics   *metrics.Collectors
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the advice orchestrator. tokens and collectors may be nil.
func NewService(generator Generator, tokens *metrics.TokenCounter, collectors *metrics.Collectors, logger *slog.Logger) Service {
	return &service{
		generator: generator,
		tokens:    tokens,
		metrics:   collectors,
		logger:    logger.With("component", "advice.service"),
		now:       util.NowUTC,
	}
}

// GetAdvice calls the generator once and degrades to the rule engine when it
// fails. The payload is always restricted to the tier's categories.
func (s *service) GetAdvice(ctx context.Context, snap weather.Snapshot, tier plan.Tier) Result {
	prompt := BuildPrompt(snap, tier)
	promptTokens, estimated := s.tokens.Count(prompt)
	res := Result{
		Tier: tier,
		Usage: metrics.TokenUsage{
			PromptTokens: promptTokens,
			TotalTokens:  promptTokens,
			Estimated:    estimated,
		},
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, GenerationRequest{
		Prompt:          prompt,
		Temperature:     GenerationTemperature,
		MaxOutputTokens: GenerationMaxOutputTokens,
	})
	s.metrics.ObserveGenerator(time.Since(start).Seconds())

	if err != nil {
		s.logger.Warn("advice generator unavailable, using fallback", "tier", tier, "city", snap.Name, "error", err)
		s.metrics.UpstreamFailed("generator")
		payload := Fallback(snap, tier)
		payload[plan.CategoryGeneral] = append([]string{adviceServiceDegraded}, payload[plan.CategoryGeneral]...)
		res.Source = SourceFallback
		res.Degraded = true
		res.Advice = payload.Filter(tier)
	} else {
		res.Source = SourceGenerator
		res.Advice = Parse(text, tier).Filter(tier)
		s.logger.Info("advice generated", "tier", tier, "city", snap.Name, "categories", len(res.Advice), "promptTokens", promptTokens)
	}

	s.metrics.ObserveAdvice(string(tier), string(res.Source))
	res.GeneratedAt = s.now().UTC()
	return res
}
