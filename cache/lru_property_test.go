package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_LRUSizeNeverExceedsCapacity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("size stays within capacity across any insert sequence", prop.ForAll(
		func(capacity int, keys []int) bool {
			c := NewLRU(capacity)

			for _, k := range keys {
				c.Set(fmt.Sprintf("k%d", k), testEntry("v", time.Minute))
				if c.Len() > capacity {
					t.Logf("size %d exceeded capacity %d", c.Len(), capacity)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 16),
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.Property("a just-inserted key is always retrievable", prop.ForAll(
		func(capacity int, keys []int) bool {
			c := NewLRU(capacity)

			for _, k := range keys {
				key := fmt.Sprintf("k%d", k)
				c.Set(key, testEntry(key, time.Minute))
				got, ok := c.Get(key)
				if !ok {
					t.Logf("key %s missing immediately after Set", key)
					return false
				}
				if got.RawText != key {
					t.Logf("key %s returned entry for %s", key, got.RawText)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 16),
		gen.SliceOf(gen.IntRange(0, 63)),
	))

	properties.TestingRun(t)
}

func TestProperty_LRUShrinkConverges(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("after shrinking, one insert drains to the new bound", prop.ForAll(
		func(initial, shrunk int) bool {
			if shrunk > initial {
				initial, shrunk = shrunk, initial
			}
			c := NewLRU(initial)
			for i := 0; i < initial; i++ {
				c.Set(fmt.Sprintf("k%d", i), testEntry("v", time.Minute))
			}

			c.SetCapacity(shrunk)
			c.Set("fresh", testEntry("v", time.Minute))

			if c.Len() > shrunk {
				t.Logf("size %d after shrink to %d", c.Len(), shrunk)
				return false
			}
			return true
		},
		gen.IntRange(1, 32),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}
