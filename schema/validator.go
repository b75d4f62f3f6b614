package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/BaSui01/structresp/contract"
)

// Validator checks a decoded JSON value against the registry's rules and
// the contract's business invariants, and constructs the immutable
// StructuredResponse on success.
//
// Checks run in a fixed precedence order and short-circuit on the first
// failure: version, object shape, required fields, field types,
// invariants. The order matters when several checks would fail at once;
// the earlier reason wins.
type Validator struct {
	registry *Registry
}

// NewValidator builds a validator over the given registry. A nil registry
// gets the built-in one.
func NewValidator(registry *Registry) *Validator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Validator{registry: registry}
}

// Registry exposes the underlying registry, mainly so callers can register
// additional versions during a migration window.
func (v *Validator) Registry() *Registry {
	return v.registry
}

// Validate checks decoded against the rule set resolved from the declared
// version and returns either a success outcome carrying the constructed
// StructuredResponse, or a failure outcome with the first violated rule.
// The stage field of the outcome is left empty; the parser stamps it.
func (v *Validator) Validate(decoded any, declared string) contract.Outcome {
	resolved, rules, err := v.registry.Resolve(declared)
	if err != nil {
		return contract.Failure(contract.ReasonUnsupportedSchemaVersion, err.Error())
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		// Decoding succeeded but the business shape did not: a bare
		// number, string or array is a type mismatch, not a syntax error.
		return contract.Failure(contract.ReasonTypeMismatch,
			fmt.Sprintf("expected a JSON object, got %s", jsonTypeName(decoded)))
	}

	for _, field := range rules.Required {
		val, present := obj[field]
		if !present || val == nil {
			return contract.Failure(contract.ReasonMissingField,
				fmt.Sprintf("required field %q is missing", field))
		}
	}

	for _, field := range rules.Order {
		val, present := obj[field]
		if !present || val == nil {
			continue
		}
		if detail := checkType(field, rules.Types[field], val); detail != "" {
			return contract.Failure(contract.ReasonTypeMismatch, detail)
		}
	}

	resp := v.build(obj, rules, declared, resolved)

	if resp.ItemsShown < 0 {
		return contract.Failure(contract.ReasonInvariantViolation,
			fmt.Sprintf("items_shown must be non-negative, got %d", resp.ItemsShown))
	}
	if resp.ItemsTotal != nil {
		if *resp.ItemsTotal < 0 {
			return contract.Failure(contract.ReasonInvariantViolation,
				fmt.Sprintf("items_total must be non-negative, got %d", *resp.ItemsTotal))
		}
		if *resp.ItemsTotal < resp.ItemsShown {
			return contract.Failure(contract.ReasonInvariantViolation,
				fmt.Sprintf("items_total %d is less than items_shown %d", *resp.ItemsTotal, resp.ItemsShown))
		}
	}

	return contract.Success(resp, "")
}

// build extracts the typed fields into a fresh response. Only fields the
// resolved rule set knows about are carried over; anything else in the
// payload is ignored.
func (v *Validator) build(obj map[string]any, rules RuleSet, declared, resolved string) *contract.StructuredResponse {
	resp := &contract.StructuredResponse{}

	if s, ok := obj["answer"].(string); ok {
		resp.Answer = s
	}
	if n, ok := toInt(obj["items_shown"]); ok {
		resp.ItemsShown = n
	}
	if raw, present := obj["items_total"]; present && raw != nil {
		if n, ok := toInt(raw); ok {
			resp.ItemsTotal = &n
		}
	}
	if _, typed := rules.Types["count_qualifier"]; typed {
		if s, ok := obj["count_qualifier"].(string); ok {
			resp.CountQualifier = contract.CountQualifier(s)
		}
	}
	if raw, present := obj["sources"]; present && raw != nil {
		list, _ := raw.([]any)
		for _, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			src := contract.Source{}
			src.Title, _ = rec["title"].(string)
			src.Type, _ = rec["type"].(string)
			src.URL, _ = rec["url"].(string)
			resp.Sources = append(resp.Sources, src)
		}
	}

	// Echo the declared version so a round-trip reproduces the payload;
	// fall back to the resolved version when none was declared.
	if s, ok := obj["schema_version"].(string); ok && s != "" {
		resp.SchemaVersion = s
	} else if declared != "" {
		resp.SchemaVersion = declared
	} else {
		resp.SchemaVersion = resolved
	}

	return resp
}

// checkType returns "" when val satisfies the field type, otherwise a
// human-readable detail naming the field and the mismatch.
func checkType(field string, ft FieldType, val any) string {
	switch ft {
	case TypeString:
		if _, ok := val.(string); !ok {
			return fmt.Sprintf("field %q: expected string, got %s", field, jsonTypeName(val))
		}
	case TypeInteger:
		if _, ok := toInt(val); !ok {
			return fmt.Sprintf("field %q: expected integer, got %s", field, jsonTypeName(val))
		}
	case TypeQualifier:
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("field %q: expected string, got %s", field, jsonTypeName(val))
		}
		if q := contract.CountQualifier(s); !q.Valid() {
			return fmt.Sprintf("field %q: %q is not one of exact, at_least, approx", field, s)
		}
	case TypeSourceList:
		list, ok := val.([]any)
		if !ok {
			return fmt.Sprintf("field %q: expected array, got %s", field, jsonTypeName(val))
		}
		for i, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				return fmt.Sprintf("field %q[%d]: expected object, got %s", field, i, jsonTypeName(item))
			}
			if s, ok := rec["title"].(string); !ok || s == "" {
				return fmt.Sprintf("field %q[%d]: source is missing a title", field, i)
			}
			if s, ok := rec["type"].(string); !ok || s == "" {
				return fmt.Sprintf("field %q[%d]: source is missing a type tag", field, i)
			}
			if u, present := rec["url"]; present && u != nil {
				if _, ok := u.(string); !ok {
					return fmt.Sprintf("field %q[%d]: source url must be a string", field, i)
				}
			}
		}
	}
	return ""
}

// toInt accepts the numeric shapes encoding/json produces and reports
// whether the value is a whole number.
func toInt(val any) (int, bool) {
	switch n := val.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func jsonTypeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", val)
	}
}
