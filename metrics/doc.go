/*
Package metrics records parse outcomes: success counters per fallback
stage, a failure-reason histogram, and per-stage latency summaries.

The recorder is safe for concurrent use from many simultaneous parse
operations. Its mutation lock covers only counter updates; the lazily
constructed Default() singleton is guarded by a separate lock under the
double-checked pattern, so startup contention never touches the hot path.

An optional Observer sink forwards every observation as a (name, value)
pair; PrometheusSink is the bundled implementation.
*/
package metrics
