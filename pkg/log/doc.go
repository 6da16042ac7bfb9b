/*
Package log provides cachalot's structured logging, adapted from the
same zerolog conventions used elsewhere in this codebase: a package
global Logger, an Init for wiring level/format/output once at process
start, and With* helpers that attach the fields cache code cares about
(manager name, cache key, tier name) instead of cluster node IDs.
*/
package log
