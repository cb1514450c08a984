// Package llm holds the shared plumbing for talking to hosted language models:
// an OpenRouter-compatible chat client used for text-only synthesis, the retry
// policy every oracle transport uses, and tolerant JSON decoding of model
// answers.
//
// # Retry Behaviour
//
// RetryPolicy retries HTTP 408/429/5xx responses, network timeouts, and
// errors wrapped with MarkRetryable using exponential backoff (base 1s, max
// 10s, up to 5 attempts by default). Retry-After headers are honoured within
// the cap. Context cancellation aborts retries immediately.
//
// # Decoding
//
// DecodeJSON accepts raw JSON, fenced ```json blocks, and objects embedded in
// prose, which covers the formatting quirks seen across providers.
package llm
