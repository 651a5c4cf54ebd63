package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalog builds the canonical 36-question structure: 3 dimensions x
// 3 subscales x 4 items, orders 1..36. reversed marks orders whose items
// are reverse-coded.
func mockCatalog(reversed map[int]bool) []Question {
	var out []Question
	order := 1
	for _, d := range Dimensions() {
		for _, s := range Subscales() {
			for i := 0; i < 4; i++ {
				out = append(out, Question{
					Order:      order,
					Dimension:  d,
					Subscale:   s,
					IsReversed: reversed[order],
				})
				order++
			}
		}
	}
	return out
}

func uniformResponses(value int) map[int]int {
	out := make(map[int]int, 36)
	for i := 1; i <= 36; i++ {
		out[i] = value
	}
	return out
}

func TestScoreResponse(t *testing.T) {
	for v := 1; v <= 5; v++ {
		assert.Equal(t, v, ScoreResponse(v, false))
		assert.Equal(t, 6-v, ScoreResponse(v, true))
	}
}

func TestSubscaleScore(t *testing.T) {
	tests := []struct {
		name   string
		scored []int
		want   int
	}{
		{"all ones is floor", []int{1, 1, 1, 1}, 0},
		{"all fives is ceiling", []int{5, 5, 5, 5}, 100},
		{"all threes is midpoint", []int{3, 3, 3, 3}, 50},
		{"rounds half up", []int{2, 3, 3, 3}, 44}, // mean 2.75 -> 43.75
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SubscaleScore(tc.scored))
		})
	}
}

func TestDimensionComposite(t *testing.T) {
	// 0.17*100 + 0.28*50 + 0.55*0 = 31
	assert.Equal(t, 31.0, DimensionComposite(100, 50, 0))
	assert.Equal(t, 0.0, DimensionComposite(0, 0, 0))
	assert.InDelta(t, 50.0, DimensionComposite(50, 50, 50), 1e-9)
	assert.InDelta(t, 100.0, DimensionComposite(100, 100, 100), 1e-9)
}

func TestStrength(t *testing.T) {
	tests := []struct {
		composite float64
		want      float64
	}{
		{0, 1.0},
		{100, 10.0},
		{50, 5.5},
		{31, 3.8}, // 1 + 2.79 = 3.79 -> 3.8
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Strength(tc.composite))
	}
}

func TestScoreAll_UniformScenarios(t *testing.T) {
	questions := mockCatalog(nil)

	tests := []struct {
		name         string
		value        int
		wantSubscale int
		wantStrength float64
	}{
		{"all ones", 1, 0, 1.0},
		{"all fives", 5, 100, 10.0},
		{"all fours", 4, 75, 7.8}, // composite 75 -> 1 + 6.75 = 7.75 -> 7.8
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scores, err := ScoreAll(uniformResponses(tc.value), questions)
			require.NoError(t, err)
			require.Len(t, scores, 3)
			for _, d := range Dimensions() {
				r := scores[d]
				assert.Equal(t, tc.wantSubscale, r.Pd, "dimension %s pd", d)
				assert.Equal(t, tc.wantSubscale, r.Cs, "dimension %s cs", d)
				assert.Equal(t, tc.wantSubscale, r.Ob, "dimension %s ob", d)
				assert.Equal(t, tc.wantStrength, r.Strength, "dimension %s strength", d)
			}
		})
	}
}

func TestScoreAll_MixedReversal(t *testing.T) {
	// Question 1 (alignment/pd) is reverse-coded. Uniform raw 5s score it
	// as 1, so that subscale's mean is 4 -> 75; every other subscale stays
	// at 100.
	questions := mockCatalog(map[int]bool{1: true})

	scores, err := ScoreAll(uniformResponses(5), questions)
	require.NoError(t, err)

	assert.Equal(t, 75, scores[DimAlignment].Pd)
	assert.Equal(t, 100, scores[DimAlignment].Cs)
	assert.Equal(t, 100, scores[DimAlignment].Ob)
	assert.Equal(t, 100, scores[DimExecution].Pd)
	assert.Equal(t, 100, scores[DimAccountability].Pd)

	// composite = 0.55*100 + 0.28*100 + 0.17*75 = 95.75 -> strength 9.6
	assert.InDelta(t, 95.75, scores[DimAlignment].Composite, 1e-9)
	assert.Equal(t, 9.6, scores[DimAlignment].Strength)
}

func TestScoreAll_Validation(t *testing.T) {
	questions := mockCatalog(nil)

	t.Run("wrong count", func(t *testing.T) {
		resp := uniformResponses(3)
		delete(resp, 36)
		_, err := ScoreAll(resp, questions)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "expected exactly 36 responses, got 35")
	})

	t.Run("value out of range", func(t *testing.T) {
		for _, bad := range []int{0, 6} {
			resp := uniformResponses(3)
			resp[7] = bad
			_, err := ScoreAll(resp, questions)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), "question 7")
		}
	})

	t.Run("unknown question id", func(t *testing.T) {
		resp := uniformResponses(3)
		delete(resp, 36)
		resp[99] = 3
		_, err := ScoreAll(resp, questions)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "invalid question_order: 99")
	})

	t.Run("missing question id", func(t *testing.T) {
		// Symmetric completeness: a catalog question with no matching
		// response entry is rejected even when the response map itself
		// passes the count/range/known-id checks.
		wide := append(append([]Question{}, questions...),
			Question{Order: 99, Dimension: DimAlignment, Subscale: SubCollectiveSystems})

		_, err := ScoreAll(uniformResponses(3), wide)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Error(), "missing response for question_order 99")
	})

	t.Run("no partial result on failure", func(t *testing.T) {
		resp := uniformResponses(3)
		resp[1] = 9
		scores, err := ScoreAll(resp, questions)
		require.Error(t, err)
		assert.Nil(t, scores)
	})
}
