package contract

import "fmt"

// ReasonCode classifies why a parse or validation attempt ended the way it
// did. The set is closed; callers can switch exhaustively.
type ReasonCode string

const (
	ReasonSuccess                  ReasonCode = "success"
	ReasonInvalidSyntax            ReasonCode = "invalid_syntax"
	ReasonMissingField             ReasonCode = "missing_field"
	ReasonTypeMismatch             ReasonCode = "type_mismatch"
	ReasonInvariantViolation       ReasonCode = "invariant_violation"
	ReasonUnsupportedSchemaVersion ReasonCode = "unsupported_schema_version"
)

// Stage identifies which fallback stage produced a successful parse.
type Stage string

const (
	StageDirect  Stage = "direct"
	StageExtract Stage = "extract"
	StageRepair  Stage = "repair"
)

// Outcome is the tagged result of a parse: either a validated response
// plus the stage that produced it, or a failure reason plus detail.
// Use Success and Failure to construct one; the two branches are mutually
// exclusive by construction.
type Outcome struct {
	Response *StructuredResponse `json:"response,omitempty"`
	Stage    Stage               `json:"stage,omitempty"`
	Reason   ReasonCode          `json:"reason"`
	Detail   string              `json:"detail,omitempty"`
}

// Success wraps a validated response. The stage may be left empty by the
// validator; the parser stamps it when a stage wins.
func Success(resp *StructuredResponse, stage Stage) Outcome {
	return Outcome{Response: resp, Stage: stage, Reason: ReasonSuccess}
}

// Failure builds a failed outcome carrying a reason code and a
// human-readable detail.
func Failure(reason ReasonCode, detail string) Outcome {
	return Outcome{Reason: reason, Detail: detail}
}

// OK reports whether the outcome carries a validated response.
func (o Outcome) OK() bool {
	return o.Reason == ReasonSuccess && o.Response != nil
}

// Err returns nil for a successful outcome, otherwise an error describing
// the failure. Handy for callers that want error plumbing instead of
// branching on the reason code.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	if o.Detail == "" {
		return fmt.Errorf("parse failed: %s", o.Reason)
	}
	return fmt.Errorf("parse failed: %s: %s", o.Reason, o.Detail)
}
