/*
Package contract defines the answer contract shared by every layer of the
engine: the validated StructuredResponse, the tagged parse Outcome, and
the closed ReasonCode and Stage enumerations.

The package has no dependencies beyond the standard library so that the
parser, validator, cache and callers can all speak the same types without
import cycles.

# Core types

  - StructuredResponse: the immutable, validated answer value
  - Source: a single citation record (title plus type tag)
  - Outcome: success-with-stage or failure-with-reason, never both
  - ReasonCode: closed failure taxonomy
  - Stage: which fallback stage produced a success

# Transparency

StructuredResponse.Transparency derives the user-facing count phrasing
("Showing 5 of 18 total items") from the counted fields only, so identical
structured data always renders identically.
*/
package contract
