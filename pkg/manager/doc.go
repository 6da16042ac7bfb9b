/*
Package manager implements cachalot's caching disciplines: Read-Through,
Write-Through, Refresh-Ahead, and the Multi-Level tier composition. All
but Multi-Level share a single stampede-protected recompute routine.

# Architecture

	┌───────────────────────── MANAGER LAYER ─────────────────────────┐
	│                                                                    │
	│   ReadThrough   WriteThrough   RefreshAhead    MultiLevel         │
	│        │              │              │               │           │
	│        └──────────────┴──────┬───────┘               │           │
	│                               ▼                       │           │
	│                    base.recompute()                   │           │
	│            singleflight.Group (in-process)            │           │
	│                       │                                │           │
	│                       ▼                                ▼           │
	│              storage.Storage (Record)          []RawStorage tiers │
	│                                                                    │
	└────────────────────────────────────────────────────────────────────┘

base.recompute is the stampede-protected "miss/stale ⇒ recompute" path:
it first coalesces same-process callers with an in-process
singleflight.Group, then arbitrates cross-process callers with the
Storage's distributed per-key lock. Read-Through and
Refresh-Ahead call it directly; Write-Through calls it only on a true
miss (its Set path bypasses it entirely, since a Write-Through Set is
always an authoritative, application-driven write). Multi-Level does
not use it at all — tier fan-out has its own fallback logic.
*/
package manager
