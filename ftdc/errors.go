package ftdc

import "errors"

// Canonical error kinds. Each is a sentinel that call sites wrap with
// additional context via fmt.Errorf("%w", ...); callers distinguish kinds
// with errors.Is. The core never masks or retries: every error surfaces to
// the caller of the operation that triggered it, and partial chunks are
// never emitted on error.
var (
	// ErrRecursionLimit is returned when the metric extractor's or the
	// decoder's document-walk nesting depth exceeds the structural
	// recursion limit. Non-recoverable for the current sample; any
	// Compressor state already committed is left untouched.
	ErrRecursionLimit = errors.New("ftdc: recursion limit exceeded")

	// ErrMalformed is returned when a VarInt cannot be decoded: the byte
	// stream ended mid-integer, or the tenth byte still carried a
	// continuation bit.
	ErrMalformed = errors.New("ftdc: malformed varint")

	// ErrCorrupt is returned when the block compressor fails to decode a
	// chunk, the declared uncompressed length does not match what was
	// produced, or the packed delta stream is exhausted before the
	// expected number of samples have been reconstructed.
	ErrCorrupt = errors.New("ftdc: corrupt chunk")

	// ErrOutOfRange is returned when reconstructing a document from a
	// chunk's metric stream would require more metric positions than the
	// reference document's schema defines.
	ErrOutOfRange = errors.New("ftdc: metric position out of range")

	// ErrConfig is returned when maxSamplesPerArchiveMetricChunk is
	// configured such that Dmax (maxSamplesPerArchiveMetricChunk - 1)
	// would be less than 1.
	ErrConfig = errors.New("ftdc: invalid configuration")
)
