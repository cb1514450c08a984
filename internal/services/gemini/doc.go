// Package gemini is a minimal REST client for the Gemini Files and
// generateContent APIs.
//
// The media flow is: Upload (resumable protocol, start then upload+finalize),
// WaitForActive (poll the file state from PROCESSING to ACTIVE or FAILED with
// exponential backoff, bounded by both an attempt count and a deadline),
// GenerateJSON (schema-constrained JSON output referencing the uploaded file),
// and DeleteFile. Text-only requests skip the file steps.
//
// Transient HTTP failures are retried with the shared llm.RetryPolicy.
package gemini
