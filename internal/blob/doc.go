// Package blob abstracts artifact byte storage behind a small contract with
// deterministic keys.
//
// Re-running a stage writes the same keys again, so duplicate writes are
// overwrites rather than corruption; downstream consumers rely on the key
// scheme for cache lookups. Backends: local filesystem (default), a Supabase
// storage bucket, and an in-memory store for tests.
package blob
