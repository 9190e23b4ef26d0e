package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/threatlens/internal/model"
)

// HeuristicCompleter answers analysis prompts offline using keyword heuristics.
//
// It reads the target back out of the prompt (see PromptBuilder) and returns
// a fenced JSON answer in the same shape the model is asked for, so its
// output goes through exactly the same normalization path as a real model.
// It never fails for prompts built by PromptBuilder.
type HeuristicCompleter struct{}

// NewHeuristicCompleter creates a HeuristicCompleter.
func NewHeuristicCompleter() *HeuristicCompleter {
	return &HeuristicCompleter{}
}

// Name returns "heuristic".
func (h *HeuristicCompleter) Name() string {
	return "heuristic"
}

// Complete analyzes the target embedded in prompt.
func (h *HeuristicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	kind, target, ok := ExtractTarget(prompt)
	if !ok {
		// Free-form prompts are treated as a message to analyze.
		kind, target = model.KindMessage, prompt
	}

	var answer heuristicAnswer
	if kind == model.KindURL {
		answer = analyzeURL(target)
	} else {
		answer = analyzeMessage(target)
	}

	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal heuristic answer: %w", err)
	}
	return "```json\n" + string(data) + "\n```", nil
}

type heuristicDetails struct {
	DomainAnalysis string `json:"domainAnalysis"`
	ContentRisks   string `json:"contentRisks"`
	UserAction     string `json:"userAction"`
}

type heuristicAnswer struct {
	Safe            bool              `json:"safe"`
	ThreatLevel     string            `json:"threatLevel"`
	Threats         []string          `json:"threats"`
	Confidence      int               `json:"confidence"`
	Category        string            `json:"category,omitempty"`
	Details         *heuristicDetails `json:"details,omitempty"`
	ScamType        *string           `json:"scamType,omitempty"`
	Recommendations []string          `json:"recommendations"`
}

// levelFor maps the number of signals to a threat level.
func levelFor(signals int) string {
	switch {
	case signals == 0:
		return "low"
	case signals == 1:
		return "medium"
	case signals == 2:
		return "high"
	default:
		return "critical"
	}
}

// confidenceFor grows with the number of signals. A clean result is less
// certain than a flagged one because heuristics cannot prove safety.
func confidenceFor(signals int) int {
	if signals == 0 {
		return 60
	}
	return min(55+10*signals, 95)
}

// keywordPattern matches any of words as whole words, case-insensitively.
func keywordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var (
	urlLureWords = keywordPattern(
		"login", "signin", "sign-in", "verify", "verification", "account", "update",
		"secure", "wallet", "bonus", "free", "prize", "banking", "password", "unlock", "suspended",
	)

	// abusedTLDs are top-level domains over-represented in phishing feeds.
	abusedTLDs = map[string]bool{
		"zip": true, "mov": true, "xyz": true, "top": true, "tk": true, "ml": true,
		"ga": true, "cf": true, "gq": true, "click": true, "country": true, "work": true,
		"support": true, "icu": true, "rest": true,
	}
)

const (
	maxSubdomainDepth = 3
	maxURLLength      = 100
)

func analyzeURL(target string) heuristicAnswer {
	raw := strings.TrimSpace(target)
	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "http://" + raw
	}

	var threats []string
	domainAnalysis := "Could not determine the registrable domain"
	lure := false

	u, err := url.Parse(withScheme)
	if err != nil || u.Hostname() == "" {
		threats = append(threats, "Address could not be parsed as a URL")
	} else {
		host := strings.ToLower(u.Hostname())

		if u.Scheme != "https" {
			threats = append(threats, "Connection is not encrypted (no HTTPS)")
		}
		if u.User != nil {
			threats = append(threats, "Address contains '@', which can hide the real destination")
		}

		if net.ParseIP(host) != nil {
			threats = append(threats, "Uses a raw IP address instead of a domain name")
			domainAnalysis = "Raw IP address " + host + "; no domain to verify"
		} else {
			if strings.Contains(host, "xn--") {
				threats = append(threats, "Uses punycode, possibly look-alike characters")
			}
			labels := strings.Split(host, ".")
			if tld := labels[len(labels)-1]; abusedTLDs[tld] {
				threats = append(threats, "Uses a top-level domain common in abuse (."+tld+")")
			}
			if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
				domainAnalysis = "Registrable domain: " + registrable
				sub := strings.TrimSuffix(strings.TrimSuffix(host, registrable), ".")
				if sub != "" && len(strings.Split(sub, ".")) >= maxSubdomainDepth {
					threats = append(threats, "Deeply nested subdomains")
				}
			}
		}

		if words := uniqueMatches(urlLureWords, raw); len(words) > 0 {
			lure = true
			threats = append(threats, "Contains lure keywords: "+strings.Join(words, ", "))
		}
	}
	if len(raw) > maxURLLength {
		threats = append(threats, "Unusually long URL")
	}

	signals := len(threats)
	answer := heuristicAnswer{
		Safe:        signals == 0,
		ThreatLevel: levelFor(signals),
		Threats:     threats,
		Confidence:  confidenceFor(signals),
		Details: &heuristicDetails{
			DomainAnalysis: domainAnalysis,
			ContentRisks:   "Page content was not inspected (offline heuristics)",
		},
	}

	switch {
	case signals == 0:
		answer.Category = "legitimate"
		answer.Details.UserAction = "proceed"
		answer.Threats = []string{}
		answer.Recommendations = []string{"No obvious risk signals; still verify the site before entering personal data"}
	case lure && signals >= 2:
		answer.Category = "phishing"
		answer.Details.UserAction = "avoid"
		answer.Recommendations = []string{
			"Do not enter credentials or payment details on this site",
			"Navigate to the organisation's site by typing its address yourself",
		}
	default:
		answer.Category = "suspicious"
		answer.Details.UserAction = "caution"
		if signals >= 2 {
			answer.Details.UserAction = "avoid"
		}
		answer.Recommendations = []string{"Verify the source before proceeding"}
	}
	return answer
}

// messageSignal is one family of scam indicators.
type messageSignal struct {
	pattern  *regexp.Regexp
	threat   string
	scamType string
}

// messageSignals are ordered by scam-type priority.
var messageSignals = []messageSignal{
	{
		pattern:  keywordPattern("password", "otp", "one-time", "verification code", "pin", "cvv", "ssn", "login details", "confirm your account"),
		threat:   "Asks for credentials or one-time codes",
		scamType: "phishing",
	},
	{
		pattern:  keywordPattern("gift card", "bitcoin", "crypto", "wire transfer", "western union", "processing fee", "upi", "send money"),
		threat:   "Requests payment through hard-to-trace channels",
		scamType: "advance-fee fraud",
	},
	{
		pattern:  keywordPattern("won", "winner", "lottery", "prize", "congratulations", "reward", "jackpot"),
		threat:   "Promises a prize or reward",
		scamType: "lottery scam",
	},
	{
		pattern:  keywordPattern("bank", "kyc", "irs", "tax refund", "customer care", "account blocked", "account suspended", "delivery failed"),
		threat:   "Impersonates a bank, agency or service",
		scamType: "impersonation",
	},
	{
		pattern:  keywordPattern("urgent", "immediately", "act now", "within 24 hours", "final notice", "expires today", "last chance"),
		threat:   "Creates a false sense of urgency",
		scamType: "pressure scam",
	},
}

var embeddedLink = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)

func analyzeMessage(text string) heuristicAnswer {
	threats := []string{}
	var scamType *string
	for _, s := range messageSignals {
		if s.pattern.MatchString(text) {
			threats = append(threats, s.threat)
			if scamType == nil {
				st := s.scamType
				scamType = &st
			}
		}
	}
	if coins := walletCoins(text); len(coins) > 0 {
		threats = append(threats, "Contains a cryptocurrency wallet address ("+strings.Join(coins, ", ")+")")
		if scamType == nil {
			st := "crypto payment scam"
			scamType = &st
		}
	}
	if embeddedLink.MatchString(text) {
		threats = append(threats, "Contains a link")
	}

	signals := len(threats)
	answer := heuristicAnswer{
		Safe:        signals == 0,
		ThreatLevel: levelFor(signals),
		Threats:     threats,
		Confidence:  confidenceFor(signals),
		ScamType:    scamType,
	}
	switch {
	case signals == 0:
		answer.Recommendations = []string{"No common scam signals found; stay alert for unexpected requests"}
	case signals == 1:
		answer.Recommendations = []string{
			"Verify the sender through an official channel",
			"Do not share codes or passwords",
		}
	default:
		answer.Recommendations = []string{
			"Do not reply, click links or send money",
			"Block the sender and report the message",
			"Contact the organisation through an official channel",
		}
	}
	return answer
}

// uniqueMatches returns the distinct lower-cased matches of re in s, in order.
func uniqueMatches(re *regexp.Regexp, s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllString(s, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
