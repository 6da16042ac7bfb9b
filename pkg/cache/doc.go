/*
Package cache is cachalot's application-facing façade. A Cache owns the
default Storage, an optional Bloom filter, and a registry of named
Managers; callers reach every caching discipline through the
package-level Get/Set generic functions plus Cache.Touch and Cache.Del.

Managers below this façade operate purely on opaque, already-serialized
strings. Get and Set are free functions rather than Cache methods
because Go methods cannot carry their own type parameters — the façade
boundary is exactly where the generic payload (de)serialization via
goccy/go-json happens.
*/
package cache
