package completion

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/threatlens/internal/model"
)

// ErrInvalidTemplate is returned for prompt templates without exactly one %s.
var ErrInvalidTemplate = errors.New("prompt template must contain exactly one %s")

const targetPlaceholder = "%s"

// DefaultURLTemplate asks the model for a url-kind report.
const DefaultURLTemplate = `You are a cybersecurity assistant that protects people from online fraud.
Analyze the following URL for phishing, scam and malware risk:

%s

Respond with ONLY a JSON object in exactly this shape and nothing else:
{
  "safe": boolean,
  "threatLevel": "low" | "medium" | "high" | "critical",
  "threats": [string],
  "confidence": number between 0 and 100,
  "category": "legitimate" | "suspicious" | "phishing" | "malware" | "scam",
  "details": {
    "domainAnalysis": string,
    "contentRisks": string,
    "userAction": "proceed" | "caution" | "avoid"
  },
  "recommendations": [string]
}`

// DefaultMessageTemplate asks the model for a message-kind report.
const DefaultMessageTemplate = `You are a cybersecurity assistant that protects people from online fraud.
Analyze the following message (SMS, e-mail or chat) for signs of a scam:

%s

Respond with ONLY a JSON object in exactly this shape and nothing else:
{
  "safe": boolean,
  "threatLevel": "low" | "medium" | "high" | "critical",
  "threats": [string],
  "confidence": number between 0 and 100,
  "scamType": string or null,
  "recommendations": [string]
}`

// targetBlock matches the target embedded by PromptBuilder.
var targetBlock = regexp.MustCompile(`(?s)<target kind="(url|message)">\n(.*)\n</target>`)

// PromptBuilder renders analysis prompts from per-kind templates.
type PromptBuilder struct {
	templates map[model.Kind]string
}

// NewPromptBuilder creates a PromptBuilder. Empty templates select the
// built-in defaults.
func NewPromptBuilder(urlTemplate, messageTemplate string) (*PromptBuilder, error) {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if messageTemplate == "" {
		messageTemplate = DefaultMessageTemplate
	}
	for kind, tmpl := range map[model.Kind]string{model.KindURL: urlTemplate, model.KindMessage: messageTemplate} {
		if strings.Count(tmpl, targetPlaceholder) != 1 {
			return nil, fmt.Errorf("%s template: %w", kind, ErrInvalidTemplate)
		}
	}
	return &PromptBuilder{templates: map[model.Kind]string{
		model.KindURL:     urlTemplate,
		model.KindMessage: messageTemplate,
	}}, nil
}

// DefaultPromptBuilder returns a PromptBuilder using the built-in templates.
func DefaultPromptBuilder() *PromptBuilder {
	return &PromptBuilder{templates: map[model.Kind]string{
		model.KindURL:     DefaultURLTemplate,
		model.KindMessage: DefaultMessageTemplate,
	}}
}

// Build renders the prompt for kind with target embedded.
// Kinds other than model.KindMessage use the url template.
func (b *PromptBuilder) Build(kind model.Kind, target string) string {
	if kind != model.KindMessage {
		kind = model.KindURL
	}
	block := fmt.Sprintf("<target kind=%q>\n%s\n</target>", kind, target)
	return strings.Replace(b.templates[kind], targetPlaceholder, block, 1)
}

// Prompt renders the built-in prompt for kind and target.
func Prompt(kind model.Kind, target string) string {
	return DefaultPromptBuilder().Build(kind, target)
}

// ExtractTarget reads back the kind and target embedded by Build.
func ExtractTarget(prompt string) (model.Kind, string, bool) {
	m := targetBlock.FindStringSubmatch(prompt)
	if m == nil {
		return "", "", false
	}
	return model.Kind(m[1]), m[2], true
}
