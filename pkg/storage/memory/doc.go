/*
Package memory is a RawStorage adapter backed by an in-process,
size-bounded LRU (github.com/hashicorp/golang-lru/v2/expirable). It is
the default single-process store for cachalot and a natural hot tier
for the Multi-Level Manager.

golang-lru's expirable.LRU enforces a single TTL for the whole cache,
which does not fit a per-key TTL contract, so the adapter runs the LRU
with auto-expiry disabled and stamps each entry with its own absolute
deadline, checked lazily on Get — the same lazy-expiry trick the
Record envelope itself uses one layer up.
*/
package memory
