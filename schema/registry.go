package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FieldType declares the shape a contract field must have.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeInteger    FieldType = "integer"
	TypeQualifier  FieldType = "qualifier"   // one of the enumerated count qualifiers
	TypeSourceList FieldType = "source_list" // ordered list of citation records
)

// RuleSet is one schema version's contract: which fields must be present,
// what type each known field has, and the deterministic order in which
// fields are checked so that "first failure" is stable across runs.
type RuleSet struct {
	Required []string
	Order    []string
	Types    map[string]FieldType
}

// ErrUnsupportedVersion is returned when a declared version's major is
// unknown to the registry or the version string cannot be parsed.
var ErrUnsupportedVersion = fmt.Errorf("unsupported schema version")

// Registry maps schema versions to their rule sets. Multiple versions can
// be registered and validated concurrently, which is what makes migration
// windows possible: a new version is added without discarding the old one.
type Registry struct {
	mu       sync.RWMutex
	versions map[string]RuleSet
	current  string
}

// CurrentVersion is the version assumed when a payload declares none.
const CurrentVersion = "1.1"

// NewRegistry builds a registry preloaded with the built-in contract
// versions: 1.0 (answer + items_shown required) and 1.1, which added the
// optional count_qualifier field under a minor bump.
func NewRegistry() *Registry {
	r := &Registry{
		versions: make(map[string]RuleSet),
		current:  CurrentVersion,
	}

	v10 := RuleSet{
		Required: []string{"answer", "items_shown"},
		Order:    []string{"answer", "items_shown", "items_total", "sources", "schema_version"},
		Types: map[string]FieldType{
			"answer":         TypeString,
			"items_shown":    TypeInteger,
			"items_total":    TypeInteger,
			"sources":        TypeSourceList,
			"schema_version": TypeString,
		},
	}

	v11 := RuleSet{
		Required: []string{"answer", "items_shown"},
		Order:    []string{"answer", "items_shown", "items_total", "count_qualifier", "sources", "schema_version"},
		Types: map[string]FieldType{
			"answer":          TypeString,
			"items_shown":     TypeInteger,
			"items_total":     TypeInteger,
			"count_qualifier": TypeQualifier,
			"sources":         TypeSourceList,
			"schema_version":  TypeString,
		},
	}

	// Register cannot fail for well-formed built-in versions.
	_ = r.Register("1.0", v10)
	_ = r.Register("1.1", v11)
	return r
}

// Register adds or replaces the rule set for a version. The version string
// must be "major.minor" with numeric components.
func (r *Registry) Register(version string, rs RuleSet) error {
	if _, _, err := splitVersion(version); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[version] = rs
	return nil
}

// Current returns the version assumed for payloads that declare none.
func (r *Registry) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent switches the assumed version. The version must already be
// registered.
func (r *Registry) SetCurrent(version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.versions[version]; !ok {
		return fmt.Errorf("%w: %s is not registered", ErrUnsupportedVersion, version)
	}
	r.current = version
	return nil
}

// Resolve maps a declared version onto a registered rule set. An empty
// declared version resolves to the current version. Unknown majors are
// rejected; unknown minors fall back to the nearest registered minor
// within the same major (preferring the lower minor on a tie).
func (r *Registry) Resolve(declared string) (string, RuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if declared == "" {
		declared = r.current
	}
	if rs, ok := r.versions[declared]; ok {
		return declared, rs, nil
	}

	major, minor, err := splitVersion(declared)
	if err != nil {
		return "", RuleSet{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, declared)
	}

	best := ""
	bestMinor := 0
	bestDist := -1
	for v := range r.versions {
		vMajor, vMinor, err := splitVersion(v)
		if err != nil || vMajor != major {
			continue
		}
		dist := vMinor - minor
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && vMinor < bestMinor) {
			best, bestMinor, bestDist = v, vMinor, dist
		}
	}
	if best == "" {
		return "", RuleSet{}, fmt.Errorf("%w: unknown major version in %q", ErrUnsupportedVersion, declared)
	}
	return best, r.versions[best], nil
}

// RequiredFields returns the required-field set for a version, after
// resolution (minor fallback included).
func (r *Registry) RequiredFields(version string) ([]string, error) {
	_, rs, err := r.Resolve(version)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rs.Required))
	copy(out, rs.Required)
	return out, nil
}

// TypeRules returns the field-to-type map for a version, after resolution.
func (r *Registry) TypeRules(version string) (map[string]FieldType, error) {
	_, rs, err := r.Resolve(version)
	if err != nil {
		return nil, err
	}
	out := make(map[string]FieldType, len(rs.Types))
	for k, v := range rs.Types {
		out[k] = v
	}
	return out, nil
}

// Versions lists the registered versions in sorted order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.versions))
	for v := range r.versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func splitVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("version %q is not major.minor", v)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("version %q has a non-numeric major", v)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("version %q has a non-numeric minor", v)
	}
	return major, minor, nil
}
