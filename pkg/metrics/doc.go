/*
Package metrics exposes cachalot's prometheus collectors: cache-wide
hit/miss/stampede counters, Multi-Level per-tier counters, and a Timer
helper for histogram observations, following the same package-level
collector + init()-registration shape used throughout this codebase.
*/
package metrics
