package assessment

import (
	"fmt"
	"math"
	"sort"
)

// Composite weights. Observable Behaviors dominates, then Collective
// Systems, then Personal Discipline; they must sum to 1.00.
const (
	weightOb = 0.55
	weightCs = 0.28
	weightPd = 0.17
)

// ScoreResponse applies reverse coding to a single raw response.
// A reversed item inverts the 1-5 scale (6 - v); a normal item passes
// the value through unchanged.
func ScoreResponse(value int, isReversed bool) int {
	if isReversed {
		return 6 - value
	}
	return value
}

// SubscaleScore maps four scored 1-5 values onto a 0-100 integer.
// The mean in [1,5] maps linearly via ((mean-1)/4)*100 and rounds half
// away from zero; since inputs are non-negative this is round-half-up.
func SubscaleScore(scored []int) int {
	sum := 0
	for _, v := range scored {
		sum += v
	}
	mean := float64(sum) / 4
	return int(math.Round((mean - 1) / 4 * 100))
}

// DimensionComposite blends the three subscale scores into a 0-100 float.
func DimensionComposite(pd, cs, ob int) float64 {
	return weightOb*float64(ob) + weightCs*float64(cs) + weightPd*float64(pd)
}

// Strength maps a 0-100 composite onto the user-facing 1.0-10.0 scale,
// rounded to one decimal place.
func Strength(composite float64) float64 {
	return math.Round((1+composite/100*9)*10) / 10
}

// ScoreAll converts a complete response set into per-dimension results.
//
// responses maps canonical question order (1..36) to a raw 1-5 value.
// Validation runs in a fixed order and the first failure wins; any
// failure aborts the whole computation with a *ValidationError. There
// is never a partial result: a silently mis-scored dimension would be
// an invisible data-integrity defect.
func ScoreAll(responses map[int]int, questions []Question) (map[Dimension]DimensionResult, error) {
	if len(responses) != 36 {
		return nil, &ValidationError{Msg: fmt.Sprintf("expected exactly 36 responses, got %d", len(responses))}
	}

	keys := make([]int, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, id := range keys {
		if v := responses[id]; v < 1 || v > 5 {
			return nil, &ValidationError{Msg: fmt.Sprintf("response value for question %d must be an integer between 1 and 5, got %d", id, v)}
		}
	}

	known := make(map[int]bool, len(questions))
	for _, q := range questions {
		known[q.Order] = true
	}
	for _, id := range keys {
		if !known[id] {
			return nil, &ValidationError{Msg: fmt.Sprintf("response contains invalid question_order: %d", id)}
		}
	}

	grouped := map[Dimension]map[Subscale][]int{}
	for _, d := range Dimensions() {
		grouped[d] = map[Subscale][]int{}
	}
	for _, q := range questions {
		raw, ok := responses[q.Order]
		if !ok {
			return nil, &ValidationError{Msg: fmt.Sprintf("missing response for question_order %d", q.Order)}
		}
		grouped[q.Dimension][q.Subscale] = append(grouped[q.Dimension][q.Subscale], ScoreResponse(raw, q.IsReversed))
	}

	out := make(map[Dimension]DimensionResult, 3)
	for _, d := range Dimensions() {
		pd := SubscaleScore(grouped[d][SubPersonalDiscipline])
		cs := SubscaleScore(grouped[d][SubCollectiveSystems])
		ob := SubscaleScore(grouped[d][SubObservableBehaviors])
		composite := DimensionComposite(pd, cs, ob)
		out[d] = DimensionResult{
			Pd:        pd,
			Cs:        cs,
			Ob:        ob,
			Composite: composite,
			Strength:  Strength(composite),
		}
	}
	return out, nil
}
