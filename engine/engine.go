package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/structresp/cache"
	"github.com/BaSui01/structresp/contract"
	"github.com/BaSui01/structresp/metrics"
)

const tracerName = "github.com/BaSui01/structresp/engine"

// ResponseParser is the engine's view of the parser. The concrete
// parser.Parser satisfies it; tests substitute counting fakes.
type ResponseParser interface {
	Parse(raw string) contract.Outcome
}

// Request carries one raw generated text plus the caller-resolved identity
// inputs that make up the canonical cache key. Batch selects the long TTL
// profile for repeatable test and batch runs.
type Request struct {
	ID            string
	RawText       string
	Model         string
	PromptVersion string
	Query         string
	DocumentIDs   []string
	Batch         bool
}

// Engine is the front door: cache lookup, single-flighted parse, metrics
// and cache write-back. One long-lived instance per process, constructed
// at startup and passed by handle into request-handling code.
type Engine struct {
	parser   ResponseParser
	cache    cache.ResultCache
	recorder *metrics.Recorder
	logger   *zap.Logger
	tracer   trace.Tracer
	group    singleflight.Group

	ttlLive  time.Duration
	ttlBatch time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache attaches a result cache. Without one every call parses.
func WithCache(c cache.ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRecorder overrides the metrics recorder (defaults to
// metrics.Default()).
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger attaches a logger (defaults to a nop logger).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTTLs overrides the live and batch cache TTL profiles.
func WithTTLs(live, batch time.Duration) Option {
	return func(e *Engine) {
		e.ttlLive = live
		e.ttlBatch = batch
	}
}

// New builds an engine around a parser.
func New(parser ResponseParser, opts ...Option) *Engine {
	e := &Engine{
		parser:   parser,
		recorder: metrics.Default(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
		ttlLive:  5 * time.Minute,
		ttlBatch: time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "engine"))
	return e
}

// Process resolves one request: canonical key, cache lookup, then a
// single-flighted parse on miss, with the outcome written back
// best-effort. The call is synchronous and bounded; there is no internal
// retry or cancellation, and a failed outcome is a value, never an error
// that aborts the caller.
func (e *Engine) Process(ctx context.Context, req Request) contract.Outcome {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx, span := e.tracer.Start(ctx, "structresp.process")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", req.ID))

	key := cache.KeyInputs{
		Model:         req.Model,
		PromptVersion: req.PromptVersion,
		Query:         req.Query,
		DocumentIDs:   req.DocumentIDs,
		RawText:       req.RawText,
	}.Key()

	if e.cache != nil {
		if entry, ok := e.cache.Get(ctx, key); ok {
			e.recorder.Increment("cache_hit")
			span.SetAttributes(attribute.Bool("cache.hit", true))
			e.logger.Debug("cache hit", zap.String("request_id", req.ID))
			return entry.Outcome
		}
		e.recorder.Increment("cache_miss")
	}

	// Concurrent identical requests share one parse; the deterministic
	// contract makes the shared outcome indistinguishable from a private
	// one.
	v, _, shared := e.group.Do(key, func() (any, error) {
		out := e.parser.Parse(req.RawText)
		if e.cache != nil {
			e.cache.Set(ctx, key, &cache.Entry{
				RawText:   req.RawText,
				Decoded:   decodedOf(out),
				Outcome:   out,
				CreatedAt: time.Now(),
				TTL:       e.ttl(req.Batch),
			})
		}
		return out, nil
	})
	out := v.(contract.Outcome)

	span.SetAttributes(
		attribute.String("outcome.reason", string(out.Reason)),
		attribute.String("outcome.stage", string(out.Stage)),
		attribute.Bool("singleflight.shared", shared),
	)
	if !out.OK() {
		e.logger.Debug("parse did not validate",
			zap.String("request_id", req.ID),
			zap.String("reason", string(out.Reason)),
			zap.String("detail", out.Detail))
	}
	return out
}

func (e *Engine) ttl(batch bool) time.Duration {
	if batch {
		return e.ttlBatch
	}
	return e.ttlLive
}

func decodedOf(out contract.Outcome) any {
	if out.Response == nil {
		return nil
	}
	return out.Response
}
