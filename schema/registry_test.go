package schema

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuiltinVersions(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"1.0", "1.1"}, r.Versions())
	assert.Equal(t, "1.1", r.Current())

	required, err := r.RequiredFields("1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"answer", "items_shown"}, required)

	rules, err := r.TypeRules("1.1")
	require.NoError(t, err)
	assert.Equal(t, TypeQualifier, rules["count_qualifier"])

	// 1.0 predates count_qualifier.
	rules, err = r.TypeRules("1.0")
	require.NoError(t, err)
	_, ok := rules["count_qualifier"]
	assert.False(t, ok)
}

func TestRegistry_EmptyVersionResolvesToCurrent(t *testing.T) {
	r := NewRegistry()
	version, _, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, r.Current(), version)
}

func TestRegistry_UnknownMinorFallsBack(t *testing.T) {
	r := NewRegistry()

	version, _, err := r.Resolve("1.7")
	require.NoError(t, err)
	assert.Equal(t, "1.1", version, "nearest registered minor within major 1")

	// Equidistant between 1.0 and 1.2 would prefer the lower minor; with
	// only 1.0 and 1.1 registered, 1.3 still lands on 1.1.
	version, _, err = r.Resolve("1.3")
	require.NoError(t, err)
	assert.Equal(t, "1.1", version)
}

func TestRegistry_UnknownMajorRejected(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Resolve("2.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, _, err = r.Resolve("not-a-version")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestRegistry_AdditiveEvolution(t *testing.T) {
	r := NewRegistry()

	rules, err := r.TypeRules("1.1")
	require.NoError(t, err)
	rules["confidence"] = TypeInteger

	require.NoError(t, r.Register("1.2", RuleSet{
		Required: []string{"answer", "items_shown"},
		Order:    []string{"answer", "items_shown", "items_total", "count_qualifier", "sources", "confidence", "schema_version"},
		Types:    rules,
	}))

	// Old versions keep validating during the migration window.
	_, _, err = r.Resolve("1.0")
	assert.NoError(t, err)
	version, _, err := r.Resolve("1.2")
	require.NoError(t, err)
	assert.Equal(t, "1.2", version)
}

func TestRegistry_BreakingEvolution(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("2.0", RuleSet{
		Required: []string{"answer", "shown_count"},
		Order:    []string{"answer", "shown_count"},
		Types: map[string]FieldType{
			"answer":      TypeString,
			"shown_count": TypeInteger,
		},
	}))

	version, rules, err := r.Resolve("2.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)
	assert.Contains(t, rules.Required, "shown_count")

	// Minor fallback stays within the major.
	version, _, err = r.Resolve("2.5")
	require.NoError(t, err)
	assert.Equal(t, "2.0", version)
}

func TestRegistry_RegisterRejectsBadVersion(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("v1", RuleSet{}))
	assert.Error(t, r.Register("1.x", RuleSet{}))
}

func TestRegistry_SetCurrent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetCurrent("1.0"))
	assert.Equal(t, "1.0", r.Current())
	assert.Error(t, r.SetCurrent("9.9"))
}

func TestRegistry_ConcurrentResolveAndRegister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = r.Register(fmt.Sprintf("1.%d", n+2), RuleSet{
				Required: []string{"answer", "items_shown"},
				Types:    map[string]FieldType{"answer": TypeString},
			})
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _, _ = r.Resolve("1.1")
			}
		}()
	}
	wg.Wait()

	_, _, err := r.Resolve("1.1")
	assert.NoError(t, err)
}
