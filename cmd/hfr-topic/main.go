// Package main provides the entry point for the hfr-topic CLI.
//
// hfr-topic crawls one paginated hardware.fr forum topic, extracts
// (author, timestamp) records from every post, and writes the records plus
// a per-day post count to the configured storage backend.
//
// Usage:
//
//	hfr-topic [--config config.yaml] [--cat N --subcat N --post N]
//
// See --help for all available options.
package main

// main is the entry point for hfr-topic.
func main() {
	Execute()
}
