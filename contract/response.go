package contract

import "fmt"

// CountQualifier describes how the items_total count should be read.
type CountQualifier string

const (
	QualifierExact   CountQualifier = "exact"
	QualifierAtLeast CountQualifier = "at_least"
	QualifierApprox  CountQualifier = "approx"
)

// Valid reports whether q is one of the enumerated qualifiers.
// The empty qualifier is valid: it means the field was absent.
func (q CountQualifier) Valid() bool {
	switch q {
	case "", QualifierExact, QualifierAtLeast, QualifierApprox:
		return true
	}
	return false
}

// Source is a single citation record. Title and Type are always set on a
// validated response; URL may be empty.
type Source struct {
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
}

// StructuredResponse is the validated answer contract. Instances are built
// exclusively by the schema validator and must not be mutated afterwards;
// a fresh value is produced per successful parse.
type StructuredResponse struct {
	Answer         string         `json:"answer"`
	ItemsShown     int            `json:"items_shown"`
	ItemsTotal     *int           `json:"items_total,omitempty"`
	CountQualifier CountQualifier `json:"count_qualifier,omitempty"`
	Sources        []Source       `json:"sources,omitempty"`
	SchemaVersion  string         `json:"schema_version,omitempty"`
}

// Transparency synthesizes the user-facing count phrasing from the counted
// fields only, never from the answer text, so identical structured data
// always yields identical phrasing. Returns "" when ItemsTotal is absent.
func (r *StructuredResponse) Transparency() string {
	if r.ItemsTotal == nil {
		return ""
	}
	total := *r.ItemsTotal
	switch r.CountQualifier {
	case QualifierAtLeast:
		return fmt.Sprintf("Showing %d of at least %d total items", r.ItemsShown, total)
	case QualifierApprox:
		return fmt.Sprintf("Showing %d of approximately %d total items", r.ItemsShown, total)
	}
	if r.ItemsShown == total {
		return fmt.Sprintf("Showing all %d items", total)
	}
	return fmt.Sprintf("Showing %d of %d total items", r.ItemsShown, total)
}
