// Package main hosts the deepcheck CLI entrypoint and command graph.
//
// The Cobra command tree serves the HTTP API, runs one-off analyses from the
// terminal, trains the offline classifiers, scores single images against
// trained artifacts, and scaffolds configuration. It centralizes
// configuration resolution and logger setup so subcommands only wire
// internal packages together.
package main
