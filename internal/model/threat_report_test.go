package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFallbackReport(t *testing.T) {
	t.Parallel()

	t.Run("url fallback is complete and fail-closed", func(t *testing.T) {
		t.Parallel()
		r := FallbackReport(KindURL)
		if !r.Complete() {
			t.Fatal("expected complete report")
		}
		if r.Safe {
			t.Error("fallback must not be safe")
		}
		if r.Confidence != 30 {
			t.Errorf("got confidence %v, expected 30", r.Confidence)
		}
		if r.Details.DomainAnalysis != "Analysis failed" {
			t.Errorf("got %q, expected %q", r.Details.DomainAnalysis, "Analysis failed")
		}
		if r.ScamType != nil {
			t.Error("url fallback must not carry scamType")
		}
	})

	t.Run("message fallback reports unknown scam type", func(t *testing.T) {
		t.Parallel()
		r := FallbackReport(KindMessage)
		if !r.Complete() {
			t.Fatal("expected complete report")
		}
		if r.ScamTypeOrEmpty() != "unknown" {
			t.Errorf("got %q, expected %q", r.ScamTypeOrEmpty(), "unknown")
		}
		if r.Details != nil || r.Category != "" {
			t.Error("message fallback must not carry url fields")
		}
	})

	t.Run("returns fresh values", func(t *testing.T) {
		t.Parallel()
		a := FallbackReport(KindURL)
		a.Threats[0] = "mutated"
		a.Details.UserAction = "mutated"
		b := FallbackReport(KindURL)
		if b.Threats[0] == "mutated" || b.Details.UserAction == "mutated" {
			t.Error("fallback reports share state")
		}
	})

	t.Run("unknown kind gets url fallback", func(t *testing.T) {
		t.Parallel()
		if got := FallbackReport(Kind("sms")).Kind; got != KindURL {
			t.Errorf("got %q, expected %q", got, KindURL)
		}
	})
}

func TestThreatReportComplete(t *testing.T) {
	t.Parallel()

	if (ThreatReport{Kind: KindURL, ThreatLevel: "low", Threats: []string{}, Recommendations: []string{}}).Complete() {
		t.Error("url report without details should not be complete")
	}
	if !(ThreatReport{Kind: KindMessage, ThreatLevel: "low", Threats: []string{}, Recommendations: []string{}}).Complete() {
		t.Error("message report with nil scamType should be complete")
	}
	if (ThreatReport{Kind: KindMessage, ThreatLevel: "low"}).Complete() {
		t.Error("report with nil slices should not be complete")
	}
	if !(ThreatReport{Kind: KindURL, Threats: []string{}, Recommendations: []string{}, Details: &URLDetails{}}).Complete() {
		t.Error("url report with empty string fields should be complete")
	}
}

func TestThreatReportMarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("message report always carries scamType", func(t *testing.T) {
		t.Parallel()
		r := ThreatReport{Kind: KindMessage, ThreatLevel: "low", Confidence: 10}
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		if !strings.Contains(s, `"scamType":null`) {
			t.Errorf("expected null scamType in %s", s)
		}
		if strings.Contains(s, "details") || strings.Contains(s, "category") {
			t.Errorf("message report leaked url fields: %s", s)
		}
		if !strings.Contains(s, `"threats":[]`) {
			t.Errorf("expected empty threats array in %s", s)
		}
	})

	t.Run("url report never carries scamType", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(FallbackReport(KindURL))
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		if strings.Contains(s, "scamType") {
			t.Errorf("url report leaked scamType: %s", s)
		}
		if !strings.Contains(s, `"domainAnalysis":"Analysis failed"`) {
			t.Errorf("missing details in %s", s)
		}
	})

	t.Run("unknown kind is an error", func(t *testing.T) {
		t.Parallel()
		_, err := json.Marshal(ThreatReport{Kind: "sms"})
		if !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})

	t.Run("decodes its own output", func(t *testing.T) {
		t.Parallel()
		for _, kind := range Kinds() {
			want := FallbackReport(kind)
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatal(err)
			}
			var got ThreatReport
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatal(err)
			}
			if !got.Complete() || got.Kind != kind || got.ScamTypeOrEmpty() != want.ScamTypeOrEmpty() {
				t.Errorf("decoded %+v, expected %+v", got, want)
			}
		}
	})
}

func TestNewScan(t *testing.T) {
	t.Parallel()

	a := NewScan(KindURL, "https://example.com", FallbackReport(KindURL))
	b := NewScan(KindURL, "https://example.com", FallbackReport(KindURL))
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if a.Severity() != SeverityMedium {
		t.Errorf("got %v, expected MEDIUM", a.Severity())
	}
}
