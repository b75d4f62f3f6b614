/*
Package engine orchestrates the full request flow:

	caller, cache lookup by canonical key, on miss a single-flighted
	parse through the fallback chain, metrics bookkeeping, best-effort
	cache write-back, outcome returned

The engine holds no per-request state beyond the call frame; the shared
mutable state (metrics recorder, result cache) lives in its own packages
behind narrow locks. Construct one Engine at startup and hand it to every
request path.
*/
package engine
