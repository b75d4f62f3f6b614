package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/structresp/contract"
)

// Any well-formed payload must validate and round-trip every field value
// exactly; no stage of validation may rewrite content.
func TestProperty_ValidPayloadRoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := NewValidator(nil)

		answer := rapid.String().Draw(rt, "answer")
		shown := rapid.IntRange(0, 1_000_000).Draw(rt, "shown")
		extra := rapid.IntRange(0, 1_000_000).Draw(rt, "extra")
		total := shown + extra

		payload := map[string]any{
			"answer":      answer,
			"items_shown": shown,
			"items_total": total,
		}
		data, err := json.Marshal(payload)
		require.NoError(rt, err)

		var decoded any
		require.NoError(rt, json.Unmarshal(data, &decoded))

		out := v.Validate(decoded, "")
		require.True(rt, out.OK(), "detail: %s", out.Detail)
		require.Equal(rt, answer, out.Response.Answer)
		require.Equal(rt, shown, out.Response.ItemsShown)
		require.NotNil(rt, out.Response.ItemsTotal)
		require.Equal(rt, total, *out.Response.ItemsTotal)
	})
}

// Whenever items_total < items_shown the verdict is invariant_violation,
// never a silent clamp or a different reason code.
func TestProperty_TotalBelowShownIsInvariantViolation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := NewValidator(nil)

		shown := rapid.IntRange(1, 1_000_000).Draw(rt, "shown")
		total := rapid.IntRange(0, shown-1).Draw(rt, "total")

		payload := map[string]any{
			"answer":      "x",
			"items_shown": shown,
			"items_total": total,
		}
		data, err := json.Marshal(payload)
		require.NoError(rt, err)

		var decoded any
		require.NoError(rt, json.Unmarshal(data, &decoded))

		out := v.Validate(decoded, "")
		require.False(rt, out.OK())
		require.Equal(rt, contract.ReasonInvariantViolation, out.Reason)
		require.Nil(rt, out.Response)
	})
}
