// Package completion provides the text-completion providers that produce the
// raw answers threatlens normalizes.
//
// Two providers implement Completer:
//   - GeminiClient calls the Google Generative Language API.
//   - HeuristicCompleter answers offline from keyword heuristics. It is used
//     when no API key is configured and as a deterministic provider in tests.
//
// Prompts are built by PromptBuilder. The target is embedded between
// <target> markers so that the heuristic provider can read it back.
package completion
