/*
Package schema holds the versioned answer-contract rules and the validator
that enforces them.

# Registry

Registry maps a "major.minor" version string to a RuleSet (required
fields, field types, deterministic check order). Versions evolve two ways:

  - additive, under a minor bump: register a new minor with an extra
    optional field; old payloads keep validating against their version
  - breaking, under a major bump: register the new major; unknown majors
    are rejected with unsupported_schema_version

Unknown minors resolve to the nearest registered minor within the same
major, so a fleet can roll forward without a flag day.

# Validator

Validator.Validate checks version, then required fields, types and invariants,
short-circuiting on the first failure, and constructs the immutable
contract.StructuredResponse on success. A decoded value that is not an
object fails with type_mismatch: decoding succeeded, the business shape
did not.
*/
package schema
