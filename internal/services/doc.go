// Package services defines shared utilities consumed by the analysis pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, pipeline stages, and content
//     fingerprints for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal (acquisition, oracle) and absorbed (extraction, cache) kinds.
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error handling, observability, retries) stays uniform.
package services
