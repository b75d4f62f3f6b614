package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestTransparency_PartialCount(t *testing.T) {
	r := &StructuredResponse{Answer: "x", ItemsShown: 5, ItemsTotal: intPtr(18)}
	assert.Equal(t, "Showing 5 of 18 total items", r.Transparency())
}

func TestTransparency_AllItems(t *testing.T) {
	r := &StructuredResponse{Answer: "x", ItemsShown: 18, ItemsTotal: intPtr(18)}
	assert.Equal(t, "Showing all 18 items", r.Transparency())

	// Explicit exact qualifier phrases the same as no qualifier.
	r.CountQualifier = QualifierExact
	assert.Equal(t, "Showing all 18 items", r.Transparency())
}

func TestTransparency_Qualifiers(t *testing.T) {
	r := &StructuredResponse{ItemsShown: 5, ItemsTotal: intPtr(18), CountQualifier: QualifierAtLeast}
	assert.Equal(t, "Showing 5 of at least 18 total items", r.Transparency())

	r.CountQualifier = QualifierApprox
	assert.Equal(t, "Showing 5 of approximately 18 total items", r.Transparency())
}

func TestTransparency_AbsentTotal(t *testing.T) {
	r := &StructuredResponse{Answer: "x", ItemsShown: 5}
	assert.Empty(t, r.Transparency())
}

func TestTransparency_Deterministic(t *testing.T) {
	// Identical structured data must always yield identical phrasing,
	// whatever the answer text says.
	a := &StructuredResponse{Answer: "first run", ItemsShown: 3, ItemsTotal: intPtr(9)}
	b := &StructuredResponse{Answer: "completely different prose", ItemsShown: 3, ItemsTotal: intPtr(9)}
	assert.Equal(t, a.Transparency(), b.Transparency())
}

func TestCountQualifier_Valid(t *testing.T) {
	for _, q := range []CountQualifier{"", QualifierExact, QualifierAtLeast, QualifierApprox} {
		assert.True(t, q.Valid(), "qualifier %q", q)
	}
	assert.False(t, CountQualifier("roughly").Valid())
}

func TestStructuredResponse_JSONRoundTrip(t *testing.T) {
	orig := &StructuredResponse{
		Answer:         "hello",
		ItemsShown:     2,
		ItemsTotal:     intPtr(7),
		CountQualifier: QualifierAtLeast,
		Sources: []Source{
			{Title: "Doc A", Type: "article", URL: "https://example.com/a"},
			{Title: "Doc B", Type: "faq"},
		},
		SchemaVersion: "1.1",
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var got StructuredResponse
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, orig, &got)
}
