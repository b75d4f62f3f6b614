/*
Package cache stores prior parse outcomes under a canonical key so that
logically identical requests skip the parser entirely.

The key is a deterministic hash over {model, prompt version, query text,
sorted document IDs, raw response text}; incidental ordering of the
document IDs never changes the key.

Storage is a local LRU (hashmap + doubly linked list, O(1) operations)
with per-entry TTL fixed at insertion, optionally fronted onto a Redis
second level. Cache failures of any kind degrade to misses: the engine
always has the parser to fall through to.
*/
package cache
