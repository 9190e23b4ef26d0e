package completion

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/normalize"
)

func heuristicReport(t *testing.T, kind model.Kind, target string) model.ThreatReport {
	t.Helper()

	raw, err := NewHeuristicCompleter().Complete(t.Context(), Prompt(kind, target))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report, outcome := normalize.New().Parse(raw, kind)
	if outcome != normalize.OutcomeParsed {
		t.Fatalf("heuristic answer was not parseable: %s", raw)
	}
	return report
}

func TestHeuristicCompleterURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		target    string
		wantLevel string
		wantSafe  bool
		wantCat   string
	}{
		{"plain https site is low", "https://www.example.com/about", "low", true, "legitimate"},
		{"http only is medium", "http://example.com", "medium", false, "suspicious"},
		{"ip host without https is high", "http://192.168.10.4/", "high", false, "suspicious"},
		{"lure on abused tld is critical", "http://paypal-login.secure-verify.xyz/account", "critical", false, "phishing"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := heuristicReport(t, model.KindURL, tc.target)
			if r.ThreatLevel != tc.wantLevel {
				t.Errorf("got level %q, expected %q (threats %v)", r.ThreatLevel, tc.wantLevel, r.Threats)
			}
			if r.Safe != tc.wantSafe {
				t.Errorf("got safe %v, expected %v", r.Safe, tc.wantSafe)
			}
			if r.Category != tc.wantCat {
				t.Errorf("got category %q, expected %q", r.Category, tc.wantCat)
			}
			if !r.Complete() {
				t.Errorf("incomplete report %+v", r)
			}
		})
	}

	t.Run("reports registrable domain", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindURL, "https://login.accounts.example.co.uk/")
		if r.Details.DomainAnalysis != "Registrable domain: example.co.uk" {
			t.Errorf("got %q", r.Details.DomainAnalysis)
		}
	})

	t.Run("flags punycode and nesting", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindURL, "https://a.b.c.xn--pypal-4ve.com")
		if !slices.Contains(r.Threats, "Uses punycode, possibly look-alike characters") {
			t.Errorf("missing punycode threat in %v", r.Threats)
		}
		if !slices.Contains(r.Threats, "Deeply nested subdomains") {
			t.Errorf("missing nesting threat in %v", r.Threats)
		}
	})
}

func TestHeuristicCompleterMessage(t *testing.T) {
	t.Parallel()

	t.Run("benign message is safe with null scamType", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindMessage, "See you at dinner tonight?")
		if !r.Safe || r.ThreatLevel != "low" || r.ScamType != nil {
			t.Errorf("unexpected report %+v", r)
		}
		if len(r.Threats) != 0 {
			t.Errorf("expected no threats, got %v", r.Threats)
		}
	})

	t.Run("prize with fee and link is critical advance-fee fraud", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindMessage,
			"Congratulations! You won a prize. Pay the processing fee with a gift card at http://claim.example")
		if r.ThreatLevel != "critical" {
			t.Errorf("got %q, expected critical (threats %v)", r.ThreatLevel, r.Threats)
		}
		if r.ScamTypeOrEmpty() != "advance-fee fraud" {
			t.Errorf("got scamType %q", r.ScamTypeOrEmpty())
		}
	})

	t.Run("otp request is phishing", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindMessage, "Please share the OTP you just received")
		if r.ScamTypeOrEmpty() != "phishing" || r.ThreatLevel != "medium" {
			t.Errorf("unexpected report %+v", r)
		}
	})

	t.Run("keywords match whole words only", func(t *testing.T) {
		t.Parallel()

		r := heuristicReport(t, model.KindMessage, "The spinning class was wonderful")
		if !r.Safe {
			t.Errorf("expected safe, got threats %v", r.Threats)
		}
	})
}

func TestHeuristicCompleterErrors(t *testing.T) {
	t.Parallel()

	h := NewHeuristicCompleter()
	if h.Name() != "heuristic" {
		t.Errorf("got %q, expected %q", h.Name(), "heuristic")
	}
	if _, err := h.Complete(t.Context(), ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := h.Complete(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	raw, err := h.Complete(t.Context(), "free-form question about an urgent bank notice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "```json") {
		t.Errorf("expected fenced answer, got %q", raw)
	}
}
