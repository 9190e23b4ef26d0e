package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/threatlens/internal/model"
)

// FileName is the name of the history database file inside its directory.
const FileName = "threatlens.db"

// timestampLayout is fixed-width so that lexical order equals time order.
const timestampLayout = "2006-01-02 15:04:05.000000"

// HistoryDB provides SQLite-based storage for scans.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		target TEXT NOT NULL,
		target_hash TEXT NOT NULL,
		source TEXT NOT NULL,
		fallback INTEGER NOT NULL DEFAULT 0,
		safe INTEGER NOT NULL DEFAULT 0,
		threat_level TEXT NOT NULL,
		confidence REAL NOT NULL,
		timestamp TEXT NOT NULL,
		scan_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_target ON scans(kind, target_hash);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// TargetHash returns the SHA3-256 fingerprint used to look up scans of the
// same target. The kind is part of the fingerprint.
func TargetHash(kind model.Kind, target string) string {
	sum := sha3.Sum256([]byte(string(kind) + "\x00" + strings.TrimSpace(target)))
	return hex.EncodeToString(sum[:])
}

// SaveScan stores a scan. Saving a scan with an existing ID replaces it.
func (h *HistoryDB) SaveScan(ctx context.Context, scan *model.Scan) error {
	if scan == nil {
		return errors.New("scan must not be nil")
	}
	scanJSON, err := json.Marshal(scan)
	if err != nil {
		return fmt.Errorf("failed to serialize scan: %w", err)
	}

	query := `
	INSERT INTO scans (id, kind, target, target_hash, source, fallback, safe, threat_level, confidence, timestamp, scan_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		target = excluded.target,
		target_hash = excluded.target_hash,
		source = excluded.source,
		fallback = excluded.fallback,
		safe = excluded.safe,
		threat_level = excluded.threat_level,
		confidence = excluded.confidence,
		timestamp = excluded.timestamp,
		scan_json = excluded.scan_json
	`
	_, err = h.db.ExecContext(ctx, query,
		scan.ID,
		string(scan.Kind),
		scan.Target,
		TargetHash(scan.Kind, scan.Target),
		scan.Source,
		scan.Fallback,
		scan.Report.Safe,
		scan.Report.ThreatLevel,
		scan.Report.Confidence,
		scan.Timestamp.UTC().Format(timestampLayout),
		string(scanJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// GetScan retrieves a scan by ID. It returns nil, nil when no scan has that ID.
func (h *HistoryDB) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	var scanJSON string
	err := h.db.QueryRowContext(ctx, `SELECT scan_json FROM scans WHERE id = ?`, id).Scan(&scanJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return decodeScan(scanJSON)
}

// LatestForTarget returns the most recent scan of target, or nil, nil.
func (h *HistoryDB) LatestForTarget(ctx context.Context, kind model.Kind, target string) (*model.Scan, error) {
	query := `
	SELECT scan_json FROM scans
	WHERE kind = ? AND target_hash = ?
	ORDER BY timestamp DESC, rowid DESC
	LIMIT 1
	`
	var scanJSON string
	err := h.db.QueryRowContext(ctx, query, string(kind), TargetHash(kind, target)).Scan(&scanJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}
	return decodeScan(scanJSON)
}

// Filter selects scans for ListScans.
type Filter struct {
	// Kind restricts results to one kind. Empty means all kinds.
	Kind model.Kind

	// Limit caps the number of results. Zero or less means no limit.
	Limit int
}

// ListScans returns scans matching filter, newest first.
// Rows whose stored JSON can no longer be decoded are skipped.
func (h *HistoryDB) ListScans(ctx context.Context, filter Filter) ([]*model.Scan, error) {
	query := `SELECT scan_json FROM scans`
	var args []any
	if filter.Kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	scans := make([]*model.Scan, 0)
	for rows.Next() {
		var scanJSON string
		if err := rows.Scan(&scanJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scan, err := decodeScan(scanJSON)
		if err != nil {
			continue
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// Summary contains aggregate counts over the whole history.
type Summary struct {
	Total         int
	Fallbacks     int
	ByKind        map[model.Kind]int
	ByThreatLevel map[string]int
	Oldest        time.Time
	Newest        time.Time
}

// Summary aggregates the stored scans.
func (h *HistoryDB) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{
		ByKind:        make(map[model.Kind]int),
		ByThreatLevel: make(map[string]int),
	}

	var oldest, newest sql.NullString
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fallback), 0), MIN(timestamp), MAX(timestamp) FROM scans`,
	).Scan(&s.Total, &s.Fallbacks, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize scans: %w", err)
	}
	if oldest.Valid {
		s.Oldest = parseTimestamp(oldest.String)
	}
	if newest.Valid {
		s.Newest = parseTimestamp(newest.String)
	}

	rows, err := h.db.QueryContext(ctx, `SELECT kind, threat_level, COUNT(*) FROM scans GROUP BY kind, threat_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize scans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, level string
		var count int
		if err := rows.Scan(&kind, &level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.ByKind[model.Kind(kind)] += count
		s.ByThreatLevel[strings.ToLower(level)] += count
	}
	return s, rows.Err()
}

// DeleteBefore removes scans older than t and returns how many were removed.
func (h *HistoryDB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM scans WHERE timestamp < ?`, t.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete scans: %w", err)
	}
	return res.RowsAffected()
}

func decodeScan(scanJSON string) (*model.Scan, error) {
	var scan model.Scan
	if err := json.Unmarshal([]byte(scanJSON), &scan); err != nil {
		return nil, fmt.Errorf("failed to parse scan: %w", err)
	}
	return &scan, nil
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp, returning zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
