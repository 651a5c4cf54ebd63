package assessment

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// ShuffledOrder returns a deterministic per-participant permutation of
// questions, used only for display order. The seed is derived from the
// participant id and a server-held secret; neither the seed nor the
// secret ever appears in the output, so a client cannot predict or
// reverse the ordering.
//
// Identical (participantID, secret, questions) always yields identical
// output. The input slice is never mutated. A blank secret is a
// deployment defect and fails with *ConfigurationError.
func ShuffledOrder(participantID, secret string, questions []Question) ([]Question, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, &ConfigurationError{Msg: "randomization secret is required for question shuffling"}
	}
	digest := sha256.Sum256([]byte(participantID + ":" + secret))
	seed := binary.BigEndian.Uint32(digest[:4])
	return shuffleWithSeed(questions, seed), nil
}

// mulberry32 is a small seedable PRNG emitting uniform floats in [0,1).
// All arithmetic is on wrapping uint32s.
func mulberry32(state uint32) func() float64 {
	return func() float64 {
		state += 0x6D2B79F5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}

// shuffleWithSeed runs a Fisher-Yates shuffle over a copy of items.
func shuffleWithSeed[T any](items []T, seed uint32) []T {
	out := make([]T, len(items))
	copy(out, items)
	random := mulberry32(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(random() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
