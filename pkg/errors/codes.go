package errors

// ErrorCode is a stable, typed identifier for a failure category.  Codes are
// grouped by subsystem prefix so that log queries and metric labels can slice
// failures without string-matching messages.
type ErrorCode string

// ─────────────────────────────────────────────────────────────────────────────
// Common codes (cross-cutting)
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
	ErrCodeConfigInvalid      ErrorCode = "COMMON_011"
)

// ─────────────────────────────────────────────────────────────────────────────
// Case-domain codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeCaseNotFound       ErrorCode = "CASE_001"
	ErrCodeCaseInvalidRecord  ErrorCode = "CASE_002"
	ErrCodeCaseImportFailed   ErrorCode = "CASE_003"
	ErrCodeCaseDatasetUnknown ErrorCode = "CASE_004"
)

// ─────────────────────────────────────────────────────────────────────────────
// Corpus snapshot codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeCorpusLoadFailed   ErrorCode = "CORPUS_001"
	ErrCodeCorpusEmpty        ErrorCode = "CORPUS_002"
	ErrCodeCorpusNotReady     ErrorCode = "CORPUS_003"
	ErrCodeCorpusSourceFailed ErrorCode = "CORPUS_004"
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine codes
// ─────────────────────────────────────────────────────────────────────────────

const (
	ErrCodeEngineWeightsInvalid   ErrorCode = "ENGINE_001"
	ErrCodeEngineThresholdInvalid ErrorCode = "ENGINE_002"
	ErrCodeEngineQueryEmpty       ErrorCode = "ENGINE_003"
	ErrCodeEngineDeadline         ErrorCode = "ENGINE_004"
)

// String returns the code's string form.
func (c ErrorCode) String() string { return string(c) }

// IsConfiguration reports whether the code belongs to the fatal
// configuration-error class: invalid weights, thresholds out of range, or a
// malformed config file.  Everything else is a per-request or per-record
// condition that must degrade gracefully.
func (c ErrorCode) IsConfiguration() bool {
	switch c {
	case ErrCodeConfigInvalid, ErrCodeEngineWeightsInvalid, ErrCodeEngineThresholdInvalid:
		return true
	default:
		return false
	}
}
