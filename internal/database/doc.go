// Package database provides SQLite-based scan history for threatlens.
//
// HistoryDB stores every completed scan together with a few indexed columns
// (kind, threat level, target fingerprint, timestamp) so that recent scans
// can be listed and summarised without decoding every stored report.
//
// The database is a single file opened through modernc.org/sqlite, a CGO-free
// driver, with WAL enabled and a single connection as the only writer.
package database
