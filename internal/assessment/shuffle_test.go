package assessment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-randomization-secret"

func numberedQuestions(n int) []Question {
	out := make([]Question, n)
	for i := range out {
		out[i] = Question{Order: i + 1, Text: fmt.Sprintf("Question %d", i+1)}
	}
	return out
}

func orders(qs []Question) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.Order
	}
	return out
}

func TestShuffledOrder_Deterministic(t *testing.T) {
	questions := numberedQuestions(36)

	a, err := ShuffledOrder("member-123", testSecret, questions)
	require.NoError(t, err)
	b, err := ShuffledOrder("member-123", testSecret, questions)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestShuffledOrder_Permutation(t *testing.T) {
	for _, n := range []int{0, 1, 2, 36} {
		t.Run(fmt.Sprintf("size %d", n), func(t *testing.T) {
			questions := numberedQuestions(n)
			shuffled, err := ShuffledOrder("member-perm", testSecret, questions)
			require.NoError(t, err)

			require.Len(t, shuffled, n)
			assert.ElementsMatch(t, orders(questions), orders(shuffled))
		})
	}
}

func TestShuffledOrder_SensitiveToParticipant(t *testing.T) {
	questions := numberedQuestions(36)

	// Across many participant ids, nearly every shuffle should differ
	// from the canonical order and from each other.
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		shuffled, err := ShuffledOrder(fmt.Sprintf("member-%d", i), testSecret, questions)
		require.NoError(t, err)
		seen[fmt.Sprint(orders(shuffled))] = true
	}
	assert.GreaterOrEqual(t, len(seen), 49, "participant ids should map to distinct orderings")
}

func TestShuffledOrder_SensitiveToSecret(t *testing.T) {
	questions := numberedQuestions(36)

	// Same statistical bar as the participant side: across many secrets
	// for one participant, nearly every shuffle should be distinct.
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		shuffled, err := ShuffledOrder("member-123", fmt.Sprintf("secret-%d", i), questions)
		require.NoError(t, err)
		seen[fmt.Sprint(orders(shuffled))] = true
	}
	assert.GreaterOrEqual(t, len(seen), 49, "secrets should map to distinct orderings")
}

func TestShuffledOrder_DoesNotMutateInput(t *testing.T) {
	questions := numberedQuestions(36)
	want := orders(questions)

	_, err := ShuffledOrder("member-123", testSecret, questions)
	require.NoError(t, err)

	assert.Equal(t, want, orders(questions))
}

func TestShuffledOrder_MissingSecret(t *testing.T) {
	questions := numberedQuestions(36)

	for _, secret := range []string{"", "   "} {
		_, err := ShuffledOrder("member-123", secret, questions)
		var cerr *ConfigurationError
		require.ErrorAs(t, err, &cerr)
	}
}
