// Package storage provides JSON file persistence for event snapshots shared
// between processes.
//
// Each key maps to one file (events:all is stored as events_all.json) that
// holds the snapshot together with its expiry time. Writes go through a
// temporary file and a rename, so readers never see a partial snapshot.
// Expired entries read as missing. The default location is
// ~/.cache/run-events/.
package storage
