package ftdc

import (
	"encoding/binary"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Outcome is the disposition returned by Compressor.AddSample.
type Outcome int

const (
	// HasSpace means the sample was accepted; no chunk was produced.
	HasSpace Outcome = iota
	// SchemaChanged means the previous sample sequence was flushed as a
	// chunk, and the triggering sample has been installed as the new
	// reference.
	SchemaChanged
	// CompressorFull means capacity was reached; the triggering sample has
	// been incorporated as the final sample of the flushed chunk, and the
	// next call to AddSample will install a new reference.
	CompressorFull
)

// Result is returned by Compressor.AddSample. Chunk is nil unless Outcome
// is SchemaChanged or CompressorFull, in which case it aliases the
// Compressor's internal compressed scratch buffer: it is valid only until
// the next mutating call on the same Compressor.
type Result struct {
	Outcome Outcome
	Chunk   []byte
	Date    time.Time
}

// Option configures a Compressor or Decompressor at construction time.
type Option func(*Compressor)

// WithLogger overrides the Logger a Compressor uses to report schema-drift
// decisions. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(c *Compressor) { c.logger = logger }
}

// WithBlockCompressor overrides the BlockCompressor a Compressor uses to
// produce chunk bytes. The default is ZLIB via klauspost/compress.
func WithBlockCompressor(bc BlockCompressor) Option {
	return func(c *Compressor) { c.compressor = bc }
}

// Compressor is the chunk assembler: it maintains a reference sample, a
// metric-major delta matrix, and schema state across calls to AddSample,
// and emits framed, compressed chunks. It is not internally synchronized;
// callers sharing one across goroutines must serialize all calls
// themselves.
type Compressor struct {
	config     *Config
	logger     Logger
	compressor BlockCompressor

	referenceDoc  bsoncore.Document
	referenceDate time.Time

	metricsCount int
	deltaCount   int
	maxDeltas    int

	// deltas is the M x Dmax metric-major delta matrix: deltas[i*maxDeltas+j]
	// holds the wrap-around-unsigned difference for metric i at sample j.
	deltas []uint64

	metrics     []int64
	prevMetrics []int64

	uncompressed []byte
	compressed   []byte
}

// NewCompressor returns a Compressor configured by cfg. It returns
// ErrConfig if cfg.Validate fails.
func NewCompressor(cfg *Config, opts ...Option) (*Compressor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Compressor{
		config:     cfg,
		logger:     NopLogger(),
		compressor: NewZlibBlockCompressor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HasDataToFlush reports whether a reference sample is currently held.
// It is false before the first AddSample and after every
// capacity-triggered flush, and true otherwise.
func (c *Compressor) HasDataToFlush() bool {
	return len(c.referenceDoc) != 0
}

// SampleCount returns the number of deltas accumulated so far. A buffer
// will decompress to 1+SampleCount documents; the extra one is the
// reference document.
func (c *Compressor) SampleCount() int {
	return c.deltaCount
}

// Reset clears the reference and counters, discarding any accumulated
// samples, but keeps the scratch buffers for reuse.
func (c *Compressor) Reset() {
	c.referenceDoc = nil
	c.referenceDate = time.Time{}
	c.metricsCount = 0
	c.deltaCount = 0
	c.maxDeltas = 0
	c.prevMetrics = c.prevMetrics[:0]
	c.metrics = c.metrics[:0]
}

// ArrayOffset computes the flat index into an M x maxDeltas metric-major
// delta matrix for the given (sample, metric) coordinates.
func ArrayOffset(maxDeltas, sample, metric int) int {
	return metric*maxDeltas + sample
}

// AddSample adds sample, captured at captureTime, to the compressor.
func (c *Compressor) AddSample(sample bsoncore.Document, captureTime time.Time) (Result, error) {
	if len(c.referenceDoc) == 0 {
		metrics, _, err := extractMetrics(c.logger, sample, sample, c.metrics[:0])
		if err != nil {
			return Result{}, err
		}
		c.installReference(sample, captureTime, metrics)
		return Result{Outcome: HasSpace}, nil
	}

	metrics, matches, err := extractMetrics(c.logger, c.referenceDoc, sample, c.metrics[:0])
	if err != nil {
		return Result{}, err
	}
	c.metrics = metrics

	if !matches {
		chunk, date, err := c.assembleChunk()
		if err != nil {
			return Result{}, err
		}

		newMetrics, _, err := extractMetrics(c.logger, sample, sample, nil)
		if err != nil {
			return Result{}, err
		}
		c.installReference(sample, captureTime, newMetrics)

		return Result{Outcome: SchemaChanged, Chunk: chunk, Date: date}, nil
	}

	for i := 0; i < c.metricsCount; i++ {
		c.deltas[ArrayOffset(c.maxDeltas, c.deltaCount, i)] = uint64(c.metrics[i] - c.prevMetrics[i])
	}

	if c.deltaCount+1 < c.maxDeltas {
		c.deltaCount++
		c.prevMetrics, c.metrics = c.metrics, c.prevMetrics
		return Result{Outcome: HasSpace}, nil
	}

	// Reaching capacity: tentatively count this sample so assembleChunk
	// sees the right D, but only commit the prevMetrics swap and clear the
	// reference once the flush has actually succeeded. A failed flush must
	// leave D unadvanced and the reference intact.
	c.deltaCount++
	chunk, date, err := c.assembleChunk()
	if err != nil {
		c.deltaCount--
		return Result{}, err
	}
	c.prevMetrics, c.metrics = c.metrics, c.prevMetrics
	c.referenceDoc = nil

	return Result{Outcome: CompressorFull, Chunk: chunk, Date: date}, nil
}

func (c *Compressor) installReference(sample bsoncore.Document, date time.Time, metrics []int64) {
	c.referenceDoc = append(c.referenceDoc[:0], sample...)
	c.referenceDate = date
	c.metricsCount = len(metrics)
	c.deltaCount = 0
	c.maxDeltas = c.config.dmax()

	c.prevMetrics = append(c.prevMetrics[:0], metrics...)
	c.metrics = c.metrics[:0]

	need := c.metricsCount * c.maxDeltas
	if cap(c.deltas) < need {
		c.deltas = make([]uint64, need)
	} else {
		c.deltas = c.deltas[:need]
		for i := range c.deltas {
			c.deltas[i] = 0
		}
	}
}

// assembleChunk writes the reference document, metric/sample counts, and
// packed delta payload into the uncompressed scratch buffer, compresses
// it, and frames the result with its uncompressed length.
func (c *Compressor) assembleChunk() ([]byte, time.Time, error) {
	buf := append(c.uncompressed[:0], c.referenceDoc...)
	buf = appendUint32LE(buf, uint32(c.metricsCount))
	buf = appendUint32LE(buf, uint32(c.deltaCount))

	if c.metricsCount > 0 && c.deltaCount > 0 {
		buf = appendDeltaPayload(buf, c.deltas, c.metricsCount, c.deltaCount, c.maxDeltas)
	}
	c.uncompressed = buf

	compressed, err := c.compressor.Compress(buf)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("ftdc: compressing chunk: %w", err)
	}

	out := appendUint32LE(c.compressed[:0], uint32(len(buf)))
	out = append(out, compressed...)
	c.compressed = out

	return out, c.referenceDate, nil
}

// appendDeltaPayload emits the metric-major, zero-run-length-encoded
// varint stream described by the chunk format: a maximal run of zero
// deltas is written as VarInt(0), VarInt(runLength-1); any other delta is
// written as VarInt(delta). Runs naturally span the boundary between one
// metric's samples and the next, since the traversal is metric-major.
func appendDeltaPayload(buf []byte, deltas []uint64, metricsCount, deltaCount, maxDeltas int) []byte {
	var zeroRun uint64
	for i := 0; i < metricsCount; i++ {
		for j := 0; j < deltaCount; j++ {
			delta := deltas[ArrayOffset(maxDeltas, j, i)]
			if delta == 0 {
				zeroRun++
				continue
			}
			if zeroRun > 0 {
				buf = appendVarint(buf, 0)
				buf = appendVarint(buf, zeroRun-1)
				zeroRun = 0
			}
			buf = appendVarint(buf, delta)
		}
	}
	if zeroRun > 0 {
		buf = appendVarint(buf, 0)
		buf = appendVarint(buf, zeroRun-1)
	}
	return buf
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
