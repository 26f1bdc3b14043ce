package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySuccess(t *testing.T) {
	rules := DefaultMarkerRules().Normalize()

	v, ok := rules.Classify("https://pay.example.com/checkout?orderCode=123&status=PAID")
	assert.True(t, ok)
	assert.Equal(t, VerdictSuccess, v)
}

func TestClassifyFailure(t *testing.T) {
	rules := DefaultMarkerRules().Normalize()

	v, ok := rules.Classify("https://pay.example.com/checkout?orderCode=123&status=CANCELLED")
	assert.True(t, ok)
	assert.Equal(t, VerdictFailure, v)
}

func TestClassifyNeutralURLInert(t *testing.T) {
	rules := DefaultMarkerRules().Normalize()

	for _, u := range []string{
		"https://pay.example.com/web/abc123",
		"https://pay.example.com/checkout?orderCode=123",
		"https://bank.example.com/otp",
		"",
	} {
		_, ok := rules.Classify(u)
		assert.False(t, ok, u)
	}
}

// A URL matching both marker sets yields a single verdict: failure wins,
// money is never assumed paid on an ambiguous signal.
func TestClassifyNeverBoth(t *testing.T) {
	rules := MarkerRules{
		Success: []string{"status=paid"},
		Cancel:  []string{"cancel=true"},
	}.Normalize()

	v, ok := rules.Classify("https://pay.example.com/return?status=PAID&cancel=true")
	assert.True(t, ok)
	assert.Equal(t, VerdictFailure, v)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	rules := DefaultMarkerRules().Normalize()

	v, ok := rules.Classify("HTTPS://PAY.EXAMPLE.COM/RETURN?STATUS=PAID")
	assert.True(t, ok)
	assert.Equal(t, VerdictSuccess, v)
}

func TestNormalizeDropsEmptyMarkers(t *testing.T) {
	rules := MarkerRules{Success: []string{" ", "Status=PAID"}, Cancel: []string{""}}.Normalize()
	assert.Equal(t, []string{"status=paid"}, rules.Success)
	assert.Empty(t, rules.Cancel)

	// an empty marker must not match every URL
	_, ok := rules.Classify("https://pay.example.com/web/abc")
	assert.False(t, ok)
}
