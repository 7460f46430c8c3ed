package advice

import (
	"time"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/pkg/metrics"
)

// Payload maps an advice category to its ordered recommendations.
// A missing key and an empty list mean the same thing.
type Payload map[plan.Category][]string

// Items returns the recommendations of a category, nil when there are none.
func (p Payload) Items(c plan.Category) []string {
	items := p[c]
	if len(items) == 0 {
		return nil
	}
	return items
}

// Filter keeps only the non-empty categories the tier is entitled to.
func (p Payload) Filter(tier plan.Tier) Payload {
	out := Payload{}
	for _, c := range tier.Categories() {
		if items := p.Items(c); items != nil {
			out[c] = append([]string(nil), items...)
		}
	}
	return out
}

func (p Payload) add(c plan.Category, item string) {
	p[c] = append(p[c], item)
}

// Source tells where a payload came from.
type Source string

const (
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// Result is returned to API consumers for one advice request.
type Result struct {
	Tier        plan.Tier          `json:"plan"`
	Source      Source             `json:"source"`
	Degraded    bool               `json:"degraded"`
	Advice      Payload            `json:"advice"`
	Usage       metrics.TokenUsage `json:"usage"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// GenerationRequest is the single call made to a text generator.
type GenerationRequest struct {
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}
