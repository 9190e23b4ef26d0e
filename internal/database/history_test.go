package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/threatlens/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestScan builds a scan with a fixed timestamp offset from base.
func newTestScan(kind model.Kind, target, level string, at time.Time) *model.Scan {
	report := model.FallbackReport(kind)
	report.ThreatLevel = level
	scan := model.NewScan(kind, target, report)
	scan.Source = "heuristic"
	scan.Timestamp = at
	return scan
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		scan := newTestScan(model.KindURL, "https://example.com", "low", time.Now())
		if err := db.SaveScan(t.Context(), scan); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		got, err := db.GetScan(t.Context(), scan.ID)
		if err != nil || got == nil {
			t.Fatalf("expected stored scan, got %v, %v", got, err)
		}
	})
}

// TestSaveAndGetScan tests storing and retrieving a scan.
func TestSaveAndGetScan(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()

	scan := newTestScan(model.KindMessage, "You won a prize!", "high", time.Now().UTC())
	if err := db.SaveScan(ctx, scan); err != nil {
		t.Fatalf("failed to save scan: %v", err)
	}

	t.Run("returns stored scan", func(t *testing.T) {
		got, err := db.GetScan(ctx, scan.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected scan, got nil")
		}
		if got.Target != scan.Target || got.Kind != model.KindMessage || got.Source != "heuristic" {
			t.Errorf("got %+v, expected %+v", got, scan)
		}
		if got.Report.ThreatLevel != "high" || got.Report.ScamTypeOrEmpty() != "unknown" {
			t.Errorf("unexpected report %+v", got.Report)
		}
		if !got.Timestamp.Equal(scan.Timestamp) {
			t.Errorf("got timestamp %v, expected %v", got.Timestamp, scan.Timestamp)
		}
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		got, err := db.GetScan(ctx, "does-not-exist")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("saving the same id replaces the scan", func(t *testing.T) {
		updated := *scan
		updated.Report.ThreatLevel = "critical"
		if err := db.SaveScan(ctx, &updated); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
		got, err := db.GetScan(ctx, scan.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Report.ThreatLevel != "critical" {
			t.Errorf("got %q, expected critical", got.Report.ThreatLevel)
		}
	})

	t.Run("nil scan is rejected", func(t *testing.T) {
		if err := db.SaveScan(ctx, nil); err == nil {
			t.Error("expected error for nil scan")
		}
	})
}

// TestListScans tests listing, filtering and ordering.
func TestListScans(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	scans := []*model.Scan{
		newTestScan(model.KindURL, "https://a.example", "low", base),
		newTestScan(model.KindMessage, "hello", "medium", base.Add(time.Minute)),
		newTestScan(model.KindURL, "https://b.example", "high", base.Add(2*time.Minute)),
		newTestScan(model.KindURL, "https://c.example", "critical", base.Add(3*time.Minute+500*time.Millisecond)),
	}
	for _, s := range scans {
		if err := db.SaveScan(ctx, s); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
	}

	t.Run("lists newest first", func(t *testing.T) {
		got, err := db.ListScans(ctx, Filter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("got %d scans, expected 4", len(got))
		}
		if got[0].Target != "https://c.example" || got[3].Target != "https://a.example" {
			t.Errorf("unexpected order: %s ... %s", got[0].Target, got[3].Target)
		}
	})

	t.Run("filters by kind and limit", func(t *testing.T) {
		got, err := db.ListScans(ctx, Filter{Kind: model.KindURL, Limit: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d scans, expected 2", len(got))
		}
		for _, s := range got {
			if s.Kind != model.KindURL {
				t.Errorf("unexpected kind %q", s.Kind)
			}
		}
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		empty := setupTestDB(t)
		got, err := empty.ListScans(ctx, Filter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty slice, got %#v", got)
		}
	})
}

// TestLatestForTarget tests lookup by target fingerprint.
func TestLatestForTarget(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	older := newTestScan(model.KindURL, "https://example.com", "low", base)
	newer := newTestScan(model.KindURL, "https://example.com", "high", base.Add(time.Hour))
	other := newTestScan(model.KindMessage, "https://example.com", "medium", base.Add(2*time.Hour))
	for _, s := range []*model.Scan{older, newer, other} {
		if err := db.SaveScan(ctx, s); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
	}

	got, err := db.LatestForTarget(ctx, model.KindURL, "  https://example.com ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != newer.ID {
		t.Errorf("expected newest url scan %s, got %+v", newer.ID, got)
	}

	none, err := db.LatestForTarget(ctx, model.KindURL, "https://never-scanned.example")
	if err != nil || none != nil {
		t.Errorf("expected nil, nil; got %+v, %v", none, err)
	}
}

// TestSummary tests aggregate counts.
func TestSummary(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	fallback := newTestScan(model.KindURL, "https://a.example", "medium", base)
	fallback.Fallback = true
	for _, s := range []*model.Scan{
		fallback,
		newTestScan(model.KindURL, "https://b.example", "High", base.Add(time.Hour)),
		newTestScan(model.KindMessage, "hi", "high", base.Add(2*time.Hour)),
	} {
		if err := db.SaveScan(ctx, s); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
	}

	s, err := db.Summary(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Total != 3 || s.Fallbacks != 1 {
		t.Errorf("got total %d fallbacks %d", s.Total, s.Fallbacks)
	}
	if s.ByKind[model.KindURL] != 2 || s.ByKind[model.KindMessage] != 1 {
		t.Errorf("unexpected kind counts %v", s.ByKind)
	}
	if s.ByThreatLevel["high"] != 2 || s.ByThreatLevel["medium"] != 1 {
		t.Errorf("unexpected level counts %v", s.ByThreatLevel)
	}
	if !s.Oldest.Equal(base) || !s.Newest.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected range %v - %v", s.Oldest, s.Newest)
	}

	t.Run("empty database", func(t *testing.T) {
		s, err := setupTestDB(t).Summary(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Total != 0 || !s.Oldest.IsZero() {
			t.Errorf("unexpected summary %+v", s)
		}
	})
}

// TestDeleteBefore tests pruning old scans.
func TestDeleteBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := t.Context()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		s := newTestScan(model.KindURL, "https://example.com", "low", base.Add(time.Duration(i)*24*time.Hour))
		if err := db.SaveScan(ctx, s); err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
	}

	n, err := db.DeleteBefore(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d scans, expected 2", n)
	}
}

// TestTargetHash tests the target fingerprint.
func TestTargetHash(t *testing.T) {
	t.Parallel()

	a := TargetHash(model.KindURL, "https://example.com")
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a != TargetHash(model.KindURL, " https://example.com\n") {
		t.Error("surrounding whitespace should not change the hash")
	}
	if a == TargetHash(model.KindMessage, "https://example.com") {
		t.Error("kind should be part of the hash")
	}
}

// TestParseTimestamp tests parsing of stored timestamps.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC)
	if got := parseTimestamp("2026-01-02 03:04:05.123456"); !got.Equal(want) {
		t.Errorf("got %v, expected %v", got, want)
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
