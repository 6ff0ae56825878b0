package prover

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ScoreRange is the closed interval every behavior score falls into.
var ScoreRange = [2]int64{0, 100}

// Scorer computes a behavior score from an opaque structured payload. The
// heuristic weighs breadth (top-level features) and depth (nested
// structures); it is deterministic so replays of the same input score
// identically.
type Scorer struct {
	featureWeight decimal.Decimal
	nestedWeight  decimal.Decimal
	nestedCap     decimal.Decimal
}

// NewScorer creates a scorer with the default model weights
func NewScorer() *Scorer {
	return &Scorer{
		featureWeight: decimal.NewFromInt(5),
		nestedWeight:  decimal.NewFromInt(10),
		nestedCap:     decimal.NewFromInt(50),
	}
}

// Score computes the behavior score, clamped to ScoreRange.
func (s *Scorer) Score(input json.RawMessage) decimal.Decimal {
	var decoded any
	if err := json.Unmarshal(input, &decoded); err != nil {
		return decimal.Zero
	}

	features := decimal.NewFromInt(int64(featureCount(decoded)))
	nested := decimal.NewFromInt(int64(nestedCount(decoded))).Mul(s.nestedWeight)
	if nested.GreaterThan(s.nestedCap) {
		nested = s.nestedCap
	}

	score := features.Mul(s.featureWeight).Add(nested)

	lo := decimal.NewFromInt(ScoreRange[0])
	hi := decimal.NewFromInt(ScoreRange[1])
	if score.LessThan(lo) {
		return lo
	}
	if score.GreaterThan(hi) {
		return hi
	}
	return score
}

func featureCount(v any) int {
	switch t := v.(type) {
	case map[string]any:
		return len(t)
	case []any:
		return len(t)
	default:
		return 1
	}
}

func nestedCount(v any) int {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	n := 0
	for _, child := range obj {
		switch child.(type) {
		case map[string]any, []any:
			n++
		}
	}
	return n
}
