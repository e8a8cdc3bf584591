// Package ftdc implements a MongoDB-style full-time diagnostic-data
// capture compressor: it ingests a stream of hierarchical BSON samples,
// tracks their schema, extracts their numeric metrics into flat vectors,
// and compresses runs of same-schema samples into framed chunks small
// enough to retain at high frequency over long uptimes. A Decompressor
// inverts the process and reconstructs the original sample sequence.
//
// # Chunk format
//
//	Chunk        = Length4 CompressedPayload .
//	Payload      = ReferenceDoc MetricsCount4 DeltaCount4 DeltaStream .
//	DeltaStream  = { ZeroRun | VarInt } .
//	ZeroRun      = VarInt(0) VarInt(runLength-1) .
//
// Length4, MetricsCount4, and DeltaCount4 are little-endian uint32s.
// ReferenceDoc is the first sample of the chunk, verbatim. Payload is
// compressed as a single ZLIB stream; Length4 is its uncompressed size.
// DeltaStream holds metricsCount*deltaCount unsigned 64-bit deltas,
// metric-major: all of one metric's deltas across the chunk's samples,
// in capture order, before moving to the next metric. A run of zero
// deltas of any length, including a single zero, is written as the pair
// VarInt(0), VarInt(runLength-1) rather than as individual zeros.
//
// # Metric vectors
//
// A sample's metric vector is produced by a lockstep walk against the
// chunk's reference sample: every metric-bearing leaf (Double, Int32,
// Int64, Decimal128, Boolean, DateTime, or Timestamp) contributes one
// int64 slot to the vector, in document order, with Timestamp
// contributing two (seconds, then increment). Objects and arrays are not
// metrics themselves; their metric-bearing descendants are. Any field
// whose value cannot be reduced to an int64 is simply absent from the
// vector and is carried only by the reference sample.
//
// The walk detects three kinds of schema drift against the reference: a
// field present in one sample but not the other, a field whose name
// changed, and a field whose type changed in a way that is not a
// harmless drift between the four numeric types. Any of the three ends
// the chunk; the sample that triggered it becomes the next chunk's
// reference.
package ftdc
