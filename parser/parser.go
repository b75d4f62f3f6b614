package parser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/structresp/contract"
	"github.com/BaSui01/structresp/metrics"
	"github.com/BaSui01/structresp/schema"
)

// Counter names the parser maintains on its recorder.
const (
	counterDirectSuccess  = "direct_success"
	counterExtractSuccess = "extract_success"
	counterRepairSuccess  = "repair_success"
	counterFinalFailed    = "final_failed"
)

// DefaultMaxInputBytes bounds the raw text accepted by Parse. Generated
// answers are short; anything near this limit is garbage in practice.
const DefaultMaxInputBytes = 1 << 20

// Parser runs the ordered fallback chain over untrusted raw text:
// direct decode, mechanical extraction, deterministic repair. The first
// stage whose decoded value passes validation wins. Parse never panics and
// never performs I/O; every call completes in time proportional to the
// input length.
type Parser struct {
	validator *schema.Validator
	recorder  *metrics.Recorder
	logger    *zap.Logger
	maxInput  int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxInputBytes overrides the input size bound.
func WithMaxInputBytes(n int) Option {
	return func(p *Parser) { p.maxInput = n }
}

// NewParser wires a parser to its validator, recorder and logger. Nil
// recorder and logger fall back to the process defaults; a nil validator
// gets one over the built-in registry.
func NewParser(validator *schema.Validator, recorder *metrics.Recorder, logger *zap.Logger, opts ...Option) *Parser {
	if validator == nil {
		validator = schema.NewValidator(nil)
	}
	if recorder == nil {
		recorder = metrics.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Parser{
		validator: validator,
		recorder:  recorder,
		logger:    logger.With(zap.String("component", "parser")),
		maxInput:  DefaultMaxInputBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// attemptResult is one stage's verdict: decodeErr is set when no JSON
// value decoded at all; otherwise outcome holds the validator's verdict.
type attemptResult struct {
	outcome   contract.Outcome
	decodeErr error
}

func (a attemptResult) won() bool {
	return a.decodeErr == nil && a.outcome.OK()
}

// Parse runs the fallback chain and returns a tagged outcome. It is the
// single entry point of the engine's hot path: all latency and outcome
// bookkeeping happens here.
func (p *Parser) Parse(raw string) contract.Outcome {
	if len(raw) > p.maxInput {
		detail := fmt.Sprintf("input of %d bytes exceeds the %d byte limit", len(raw), p.maxInput)
		p.recorder.Increment(counterFinalFailed)
		p.recorder.RecordReason(string(contract.ReasonInvalidSyntax))
		return contract.Failure(contract.ReasonInvalidSyntax, detail)
	}

	var lastDecodeErr error
	var lastInvalid *contract.Outcome

	note := func(res attemptResult) {
		if res.decodeErr != nil {
			lastDecodeErr = res.decodeErr
		} else if !res.outcome.OK() {
			out := res.outcome
			lastInvalid = &out
		}
	}

	trimmed := strings.TrimSpace(raw)

	// Stage 1: decode the whole text as-is.
	res := p.attempt(contract.StageDirect, raw)
	if res.won() {
		return p.succeed(contract.StageDirect, counterDirectSuccess, res.outcome)
	}
	note(res)

	// Stage 2: mechanically extract a candidate from surrounding prose.
	candidate, extracted := extractCandidate(raw)
	if extracted && candidate != trimmed {
		res = p.attempt(contract.StageExtract, candidate)
		if res.won() {
			return p.succeed(contract.StageExtract, counterExtractSuccess, res.outcome)
		}
		note(res)
	}

	// Stage 3: deterministic punctuation repair. The extracted candidate
	// goes first, but extraction can mis-slice when a closer hides inside
	// a string value, so the whole text is repaired as well.
	bases := []string{trimmed}
	if extracted && candidate != trimmed {
		bases = []string{candidate, trimmed}
	}
	res = p.repairAttempt(bases)
	if res.won() {
		return p.succeed(contract.StageRepair, counterRepairSuccess, res.outcome)
	}
	note(res)

	// Stage 4: give up. If any stage decoded a value, the validator's
	// verdict on it is the failure we report; otherwise the syntax never
	// recovered.
	p.recorder.Increment(counterFinalFailed)
	if lastInvalid != nil {
		p.recorder.RecordReason(string(lastInvalid.Reason))
		p.logger.Debug("parse failed after validation",
			zap.String("reason", string(lastInvalid.Reason)),
			zap.String("detail", lastInvalid.Detail))
		return *lastInvalid
	}
	detail := "no JSON value could be decoded"
	if lastDecodeErr != nil {
		detail = lastDecodeErr.Error()
	}
	p.recorder.RecordReason(string(contract.ReasonInvalidSyntax))
	p.logger.Debug("parse failed", zap.String("detail", detail))
	return contract.Failure(contract.ReasonInvalidSyntax, detail)
}

// attempt decodes text and, on success, hands the value to the validator.
// The stage's latency bucket always receives the attempt duration.
func (p *Parser) attempt(stage contract.Stage, text string) attemptResult {
	start := time.Now()
	defer func() {
		p.recorder.RecordLatency(string(stage), time.Since(start))
	}()

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return attemptResult{decodeErr: err}
	}
	return attemptResult{outcome: p.validator.Validate(value, declaredVersion(value))}
}

// repairAttempt applies the fixed repair sequence to each base in order,
// retrying the decode after each transformation. The first repaired text
// that decodes and validates wins; a text that decoded but failed
// validation is remembered so the final verdict can carry the validator's
// reason. The whole stage is timed as one attempt.
func (p *Parser) repairAttempt(bases []string) attemptResult {
	start := time.Now()
	defer func() {
		p.recorder.RecordLatency(string(contract.StageRepair), time.Since(start))
	}()

	var invalid *contract.Outcome
	var lastErr error
	for _, base := range bases {
		for _, repaired := range repairCandidates(base) {
			var value any
			if err := json.Unmarshal([]byte(repaired), &value); err != nil {
				lastErr = err
				continue
			}
			out := p.validator.Validate(value, declaredVersion(value))
			if out.OK() {
				return attemptResult{outcome: out}
			}
			if invalid == nil {
				invalid = &out
			}
		}
	}
	if invalid != nil {
		return attemptResult{outcome: *invalid}
	}
	return attemptResult{decodeErr: lastErr}
}

func (p *Parser) succeed(stage contract.Stage, counter string, out contract.Outcome) contract.Outcome {
	out.Stage = stage
	p.recorder.Increment(counter)
	p.recorder.RecordReason(string(contract.ReasonSuccess))
	p.logger.Debug("parse succeeded", zap.String("stage", string(stage)))
	return out
}

// declaredVersion pulls the schema_version string out of a decoded value,
// if there is one. The validator assumes the current version otherwise.
func declaredVersion(value any) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj["schema_version"].(string)
	return s
}
