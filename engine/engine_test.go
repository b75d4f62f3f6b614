package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/structresp/cache"
	"github.com/BaSui01/structresp/contract"
	"github.com/BaSui01/structresp/metrics"
	"github.com/BaSui01/structresp/parser"
	"github.com/BaSui01/structresp/schema"
)

// countingParser wraps the real parser and counts invocations, so tests can
// prove when the cache or singleflight absorbed a call.
type countingParser struct {
	inner *parser.Parser
	calls atomic.Int64
	delay time.Duration
}

func (p *countingParser) Parse(raw string) contract.Outcome {
	p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return p.inner.Parse(raw)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *countingParser, *metrics.Recorder) {
	t.Helper()
	rec := metrics.NewRecorder()
	cp := &countingParser{
		inner: parser.NewParser(schema.NewValidator(nil), rec, zap.NewNop()),
	}
	opts = append([]Option{WithRecorder(rec)}, opts...)
	return New(cp, opts...), cp, rec
}

func TestEngine_ProcessWithoutCache(t *testing.T) {
	e, cp, _ := newTestEngine(t)

	out := e.Process(context.Background(), Request{
		RawText: `{"answer":"x","items_shown":5,"items_total":18}`,
	})
	require.True(t, out.OK())
	assert.Equal(t, contract.StageDirect, out.Stage)
	assert.Equal(t, int64(1), cp.calls.Load())

	// No cache attached: every call parses.
	e.Process(context.Background(), Request{
		RawText: `{"answer":"x","items_shown":5,"items_total":18}`,
	})
	assert.Equal(t, int64(2), cp.calls.Load())
}

func TestEngine_CacheIdempotence(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, rec := newTestEngine(t, WithCache(c))

	req := Request{
		RawText:       `{"answer":"x","items_shown":5,"items_total":18}`,
		Model:         "m1",
		PromptVersion: "p1",
		Query:         "q",
		DocumentIDs:   []string{"d2", "d1"},
	}

	first := e.Process(context.Background(), req)
	require.True(t, first.OK())

	second := e.Process(context.Background(), req)
	require.True(t, second.OK())

	assert.Equal(t, int64(1), cp.calls.Load(), "second call is served from cache")

	// Byte-identical structured results.
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.Counters["cache_hit"])
	assert.Equal(t, uint64(1), snap.Counters["cache_miss"])
}

func TestEngine_DocumentOrderSharesCacheEntry(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t, WithCache(c))

	raw := `{"answer":"x","items_shown":1}`
	e.Process(context.Background(), Request{RawText: raw, DocumentIDs: []string{"a", "b"}})
	e.Process(context.Background(), Request{RawText: raw, DocumentIDs: []string{"b", "a"}})

	assert.Equal(t, int64(1), cp.calls.Load())
}

func TestEngine_FailedOutcomesAreCachedToo(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t, WithCache(c))

	req := Request{RawText: `not json at all`}

	first := e.Process(context.Background(), req)
	require.False(t, first.OK())

	second := e.Process(context.Background(), req)
	assert.Equal(t, first.Reason, second.Reason)
	assert.Equal(t, int64(1), cp.calls.Load(), "the failure is cached, not re-derived")
}

func TestEngine_TTLExpiryReparses(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t,
		WithCache(c),
		WithTTLs(20*time.Millisecond, time.Hour),
	)

	req := Request{RawText: `{"answer":"x","items_shown":1}`}
	e.Process(context.Background(), req)

	time.Sleep(40 * time.Millisecond)

	e.Process(context.Background(), req)
	assert.Equal(t, int64(2), cp.calls.Load(), "expired entry forces a fresh parse")
}

func TestEngine_BatchUsesLongTTL(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t,
		WithCache(c),
		WithTTLs(20*time.Millisecond, time.Hour),
	)

	req := Request{RawText: `{"answer":"x","items_shown":1}`, Batch: true}
	e.Process(context.Background(), req)

	time.Sleep(40 * time.Millisecond)

	e.Process(context.Background(), req)
	assert.Equal(t, int64(1), cp.calls.Load(), "batch entries outlive the live TTL")
}

func TestEngine_ConcurrentIdenticalRequestsParseOnce(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t, WithCache(c))
	cp.delay = 30 * time.Millisecond

	req := Request{RawText: `{"answer":"x","items_shown":5,"items_total":18}`}

	const n = 16
	outcomes := make([]contract.Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = e.Process(context.Background(), req)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), cp.calls.Load(), "identical in-flight requests share one parse")
	for _, out := range outcomes {
		require.True(t, out.OK())
		assert.Equal(t, 5, out.Response.ItemsShown)
	}
}

func TestEngine_DistinctRequestsDoNotShare(t *testing.T) {
	c := cache.NewMultiLevel(cache.DefaultConfig(), nil, zap.NewNop())
	e, cp, _ := newTestEngine(t, WithCache(c))

	e.Process(context.Background(), Request{RawText: `{"answer":"a","items_shown":1}`})
	e.Process(context.Background(), Request{RawText: `{"answer":"b","items_shown":1}`})

	assert.Equal(t, int64(2), cp.calls.Load())
}

func TestEngine_AssignsRequestID(t *testing.T) {
	e, _, _ := newTestEngine(t)

	// An empty ID is filled in rather than rejected; the call still works.
	out := e.Process(context.Background(), Request{RawText: `{"answer":"x","items_shown":1}`})
	assert.True(t, out.OK())
}
