// Package stores persists the deployment state stream: one row per
// validation run, a step state per validated step, and an append-only event
// log. The SQLite implementation runs in WAL mode with embedded migrations,
// so `stepforge validate --record` needs nothing but a writable file path.
package stores
