/*
Package storage defines the Storage contract every backend adapter
must satisfy, in its two shapes:

  - RawStorage: raw string key/value operations plus lock primitives,
    the shape a backend adapter (pkg/storage/memory, pkg/storage/bolt,
    or a third-party Redis/etcd/SQL client wrapper) actually implements.
  - Storage: the Record-shape operations (Get/Set/Del/Touch/GetTags/
    IsOutdated/lock helpers) that Read-Through, Write-Through,
    Refresh-Ahead, and the base stampede routine consume.

Wrapper bridges the two: it is constructed over a RawStorage and
enforces the Record/Tag discipline (serializing the envelope, stamping
current tag versions on write, evaluating staleness on read) so that
every Manager sees the same Storage interface regardless of which
RawStorage backs it.

	┌────────────────────── STORAGE LAYERING ──────────────────────┐
	│                                                                │
	│   Manager (Read/Write/Refresh-Ahead)                          │
	│          │ Storage interface (Record shape)                   │
	│          ▼                                                     │
	│   storage.Wrapper                                              │
	│          │ RawStorage interface (string shape)                 │
	│          ▼                                                     │
	│   storage/memory.Store   storage/bolt.Store   (your adapter)  │
	│                                                                │
	└────────────────────────────────────────────────────────────────┘

The Multi-Level Manager talks to RawStorage directly for each tier —
per spec, tier warm-up uses the hit value as-is and does not round-trip
through the Record envelope.
*/
package storage
