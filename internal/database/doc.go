// Package database opens the PostgreSQL pool used by the event journal and
// owns the journal's schema.
//
// The journal is optional. When it is disabled the bridge never dials the
// database and nothing in this package runs.
package database
