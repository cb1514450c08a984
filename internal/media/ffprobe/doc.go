// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Result exposes stream and container metadata including tags (encoder,
// handler_name, com.apple.quicktime.* keys, creation_time) which the metadata
// extractor inspects, and the duration the frame sampler seeks across.
package ffprobe
