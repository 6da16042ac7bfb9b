/*
Package bolt is a RawStorage adapter backed by an embedded bbolt
database, in the same Open/CreateBucketIfNotExists/Update/View style
used for BoltDB-backed storage elsewhere in this codebase. It is
intended as a durable lower tier for the Multi-Level Manager: slower
than the in-memory tier, but it survives a process restart.

bbolt has no native per-key TTL, so each value is stored alongside an
absolute expiry timestamp and expired entries are reaped lazily on Get.
*/
package bolt
