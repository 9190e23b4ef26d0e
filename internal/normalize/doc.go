// Package normalize turns free-form generative-model output into a
// fully populated model.ThreatReport.
//
// Model answers are expected to contain a single JSON object, but in practice
// they arrive wrapped in markdown code fences, prefixed with prose, truncated
// or not JSON at all. The normalizer tolerates all of these:
//
//  1. Fence markers and a leading "json" token are stripped.
//  2. The span from the first '{' to the last '}' is decoded as JSON.
//  3. Each expected field is read with an exact type check and replaced by
//     its default when missing or mistyped.
//  4. When no object can be decoded at all, the fail-closed fallback report
//     for the requested kind is returned instead.
//
// Normalization never fails and never panics. A Normalizer holds no mutable
// state and is safe for concurrent use.
package normalize
