// Package main provides the entry point for the threatlens CLI.
//
// threatlens asks a language model (or an offline heuristic) whether a URL
// or a message is a scam, and turns the free-form answer into a typed
// threat report.
//
// Usage:
//
//	threatlens scan url <url>...
//	threatlens scan message <text>...
//	threatlens normalize --kind message answer.txt
//	threatlens serve
//
// See --help for all available options.
package main

// main is the entry point for threatlens.
func main() {
	Execute()
}
