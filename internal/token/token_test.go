package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive(PurposeAssessment, "member-1", "secret")
	b := Derive(PurposeAssessment, "member-1", "secret")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestDeriveSeparatesPurposes(t *testing.T) {
	assert.NotEqual(t,
		Derive(PurposeAssessment, "id-1", "secret"),
		Derive(PurposeDashboard, "id-1", "secret"))
	assert.NotEqual(t,
		Derive(PurposeReport, "id-1", "secret"),
		Derive(PurposeReport, "id-2", "secret"))
	assert.NotEqual(t,
		Derive(PurposeReport, "id-1", "secret"),
		Derive(PurposeReport, "id-1", "other-secret"))
}

func TestVerify(t *testing.T) {
	raw := Derive(PurposeDashboard, "team-9", "secret")
	hash := Hash(raw)

	assert.True(t, Verify(raw, hash))
	assert.False(t, Verify(raw+"x", hash))
	assert.False(t, Verify("", hash))
}
