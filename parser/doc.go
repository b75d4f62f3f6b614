/*
Package parser decodes untrusted generated text into a validated answer
through a strictly ordered fallback chain:

 1. direct: decode the whole text as JSON
 2. extract: slice a fenced or bracket-delimited candidate out of prose
 3. repair: trim whitespace, drop trailing commas, append missing
    closers, retrying the decode after each transformation
 4. fail: invalid_syntax, or the validator's reason when a value
    decoded but did not validate

The chain is deterministic: the same input always takes the same path and
yields the same outcome. Repair only ever touches punctuation; it cannot
fabricate field values. Every stage attempt is timed into the metrics
recorder whether or not it succeeds.
*/
package parser
