package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAcquisition       = errors.New("acquisition error")
	ErrExtraction        = errors.New("evidence extraction error")
	ErrOracle            = errors.New("oracle error")
	ErrOracleProcessing  = fmt.Errorf("%w: processing failed", ErrOracle)
	ErrOracleTimeout     = fmt.Errorf("%w: still processing past deadline", ErrOracle)
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrOracle)
	ErrCache             = errors.New("cache error")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTimeout           = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must terminate the request with an Error verdict.
// Extraction and cache failures are absorbed by the pipeline.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrCache):
		return false
	default:
		return true
	}
}

// Kind returns a short classification label used in logs and error records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrOracleTimeout):
		return "oracle_timeout"
	case errors.Is(err, ErrOracleProcessing):
		return "oracle_processing"
	case errors.Is(err, ErrMalformedResponse):
		return "oracle_malformed"
	case errors.Is(err, ErrOracle):
		return "oracle"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrCache):
		return "cache"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
