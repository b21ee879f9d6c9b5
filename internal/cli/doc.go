// Package cli implements the command-line interface for run-events.
//
// The root command has two subcommands. serve builds the extractors, the
// aggregator and the configured cache, then serves the HTTP API until
// SIGINT or SIGTERM, optionally refreshing on a cron schedule. fetch runs
// one aggregation and prints the filtered, sorted result as text or JSON.
package cli
