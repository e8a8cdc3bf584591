package ftdc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Decompressor reconstructs the document sequence encoded in a chunk
// produced by Compressor. It holds only scratch buffers and is safe to
// reuse across chunks, but like Compressor it is not internally
// synchronized.
type Decompressor struct {
	logger     Logger
	compressor BlockCompressor

	metrics []int64
	scratch []int64
}

// NewDecompressor returns a Decompressor. The same Option constructors
// used with NewCompressor apply here; WithBlockCompressor must match
// whatever produced the chunks being read.
func NewDecompressor(opts ...Option) *Decompressor {
	c := &Compressor{
		logger:     NopLogger(),
		compressor: NewZlibBlockCompressor(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Decompressor{logger: c.logger, compressor: c.compressor}
}

// Decode reconstructs every document framed in a single chunk: the
// reference document first, then one reconstructed document per encoded
// delta, in original sample order. It returns ErrCorrupt if the chunk's
// frame, block-compressed payload, or delta stream is inconsistent, or
// ErrOutOfRange if reconstructing a document needs more (or leaves
// unconsumed) metric positions than the reference document's schema
// defines.
func (d *Decompressor) Decode(chunk []byte) ([]bsoncore.Document, error) {
	if len(chunk) < 4 {
		return nil, fmt.Errorf("ftdc: %w: chunk shorter than its length frame", ErrCorrupt)
	}
	uncompressedLen := binary.LittleEndian.Uint32(chunk[:4])

	buf, err := d.compressor.Decompress(chunk[4:], int(uncompressedLen))
	if err != nil {
		return nil, err
	}

	refDoc, rest, err := readLeadingDocument(buf)
	if err != nil {
		return nil, err
	}

	if len(rest) < 8 {
		return nil, fmt.Errorf("ftdc: %w: chunk missing metric/sample counts", ErrCorrupt)
	}
	metricsCount := int(binary.LittleEndian.Uint32(rest[0:4]))
	deltaCount := int(binary.LittleEndian.Uint32(rest[4:8]))
	payload := rest[8:]

	refMetrics, _, err := extractMetrics(d.logger, refDoc, refDoc, d.metrics[:0])
	if err != nil {
		return nil, err
	}
	d.metrics = refMetrics
	if len(refMetrics) != metricsCount {
		return nil, fmt.Errorf("ftdc: %w: reference document yields %d metrics, chunk declares %d",
			ErrCorrupt, len(refMetrics), metricsCount)
	}

	deltas, err := decodeDeltaStream(payload, metricsCount, deltaCount)
	if err != nil {
		return nil, err
	}

	docs := make([]bsoncore.Document, 0, deltaCount+1)
	docs = append(docs, append(bsoncore.Document(nil), refDoc...))

	prev := append([]int64(nil), refMetrics...)
	for sample := 0; sample < deltaCount; sample++ {
		cur := make([]int64, metricsCount)
		for metric := 0; metric < metricsCount; metric++ {
			cur[metric] = prev[metric] + int64(deltas[ArrayOffset(deltaCount, sample, metric)])
		}

		doc, err := constructDocumentFromMetrics(refDoc, cur)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		prev = cur
	}

	return docs, nil
}

// readLeadingDocument reads one complete BSON document from the front of
// buf, using the document's own 4-byte length prefix, and returns it
// along with whatever bytes follow it.
func readLeadingDocument(buf []byte) (bsoncore.Document, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("ftdc: %w: chunk missing reference document length", ErrCorrupt)
	}
	n := int(binary.LittleEndian.Uint32(buf[:4]))
	if n < 5 || n > len(buf) {
		return nil, nil, fmt.Errorf("ftdc: %w: reference document length %d out of range", ErrCorrupt, n)
	}
	return bsoncore.Document(buf[:n]), buf[n:], nil
}

// decodeDeltaStream inverts appendDeltaPayload, expanding zero runs back
// into metricsCount*deltaCount individual deltas arranged metric-major
// (ArrayOffset(deltaCount, sample, metric)).
func decodeDeltaStream(payload []byte, metricsCount, deltaCount int) ([]uint64, error) {
	deltas := make([]uint64, metricsCount*deltaCount)
	if metricsCount == 0 || deltaCount == 0 {
		return deltas, nil
	}

	r := bytes.NewReader(payload)
	pos := 0
	total := metricsCount * deltaCount

	for pos < total {
		v, err := readVarint(r)
		if err != nil {
			return nil, fmt.Errorf("ftdc: %w: reading delta: %w", ErrCorrupt, err)
		}
		if v != 0 {
			deltas[metricMajorIndex(pos, deltaCount)] = v
			pos++
			continue
		}

		runLenMinusOne, err := readVarint(r)
		if err != nil {
			return nil, fmt.Errorf("ftdc: %w: reading zero-run length: %w", ErrCorrupt, err)
		}
		runLen := runLenMinusOne + 1
		if pos+int(runLen) > total {
			return nil, fmt.Errorf("ftdc: %w: zero run overruns delta matrix", ErrCorrupt)
		}
		pos += int(runLen)
	}

	if pos != total {
		return nil, fmt.Errorf("ftdc: %w: delta stream decoded %d values, expected %d", ErrCorrupt, pos, total)
	}
	return deltas, nil
}

// metricMajorIndex maps a flat, metric-major traversal position (as
// produced by iterating metric outer, sample inner, the same order
// appendDeltaPayload writes) back into the ArrayOffset(deltaCount, ...)
// layout used elsewhere.
func metricMajorIndex(pos, deltaCount int) int {
	metric := pos / deltaCount
	sample := pos % deltaCount
	return ArrayOffset(deltaCount, sample, metric)
}

// constructDocumentFromMetrics rebuilds a document with ref's schema
// (field names, nesting, and element order) but cur's metric values.
// Double, Int32, Int64, and Decimal128 leaves are all emitted as Int64,
// regardless of which of the four the reference document used for that
// field; Boolean, DateTime, and Timestamp leaves keep their original wire
// type.
func constructDocumentFromMetrics(ref bsoncore.Document, cur []int64) (bsoncore.Document, error) {
	doc, pos, err := buildDocumentFromMetrics(ref, cur, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(cur) {
		return nil, fmt.Errorf("ftdc: %w: reference document consumed %d of %d metrics", ErrOutOfRange, pos, len(cur))
	}
	return doc, nil
}

func buildDocumentFromMetrics(ref bsoncore.Document, cur []int64, pos int) (bsoncore.Document, int, error) {
	elements, err := ref.Elements()
	if err != nil {
		return nil, 0, fmt.Errorf("ftdc: %w: reading reference elements: %v", ErrCorrupt, err)
	}

	idx, out := bsoncore.AppendDocumentStart(nil)
	for _, elem := range elements {
		val, err := elem.ValueErr()
		if err != nil {
			return nil, 0, fmt.Errorf("ftdc: %w: reading reference element: %v", ErrCorrupt, err)
		}
		key := elem.Key()

		if !isMetricBearing(val.Type) {
			out = bsoncore.AppendValueElement(out, key, val)
			continue
		}

		switch val.Type {
		case bsontype.EmbeddedDocument, bsontype.Array:
			refSub, ok := subDocument(val)
			if !ok {
				return nil, 0, fmt.Errorf("ftdc: %w: malformed nested reference document", ErrCorrupt)
			}
			var sub bsoncore.Document
			sub, pos, err = buildDocumentFromMetrics(refSub, cur, pos)
			if err != nil {
				return nil, 0, err
			}
			if val.Type == bsontype.Array {
				out = bsoncore.AppendArrayElement(out, key, bsoncore.Array(sub))
			} else {
				out = bsoncore.AppendDocumentElement(out, key, sub)
			}

		case bsontype.Timestamp:
			// A Timestamp occupies two metric slots (seconds, increment) and
			// is the one metric-bearing type that cannot be collapsed to a
			// single Int64 on the way back out: it is reconstructed as a
			// Timestamp, not promoted to the Int64-for-everything rule below.
			if pos+2 > len(cur) {
				return nil, 0, fmt.Errorf("ftdc: %w: ran out of metrics rebuilding timestamp", ErrOutOfRange)
			}
			out = bsoncore.AppendTimestampElement(out, key, uint32(cur[pos]), uint32(cur[pos+1]))
			pos += 2

		case bsontype.Boolean:
			// Booleans, like Timestamps and DateTimes, are reconstructed in
			// their original wire type rather than collapsed to Int64.
			if pos >= len(cur) {
				return nil, 0, fmt.Errorf("ftdc: %w: ran out of metrics rebuilding boolean", ErrOutOfRange)
			}
			out = bsoncore.AppendBooleanElement(out, key, cur[pos] != 0)
			pos++

		case bsontype.DateTime:
			if pos >= len(cur) {
				return nil, 0, fmt.Errorf("ftdc: %w: ran out of metrics rebuilding datetime", ErrOutOfRange)
			}
			out = bsoncore.AppendDateTimeElement(out, key, cur[pos])
			pos++

		default:
			// Only Double, Int32, Int64, and Decimal128 fall through here,
			// and all four collapse to Int64.
			if pos >= len(cur) {
				return nil, 0, fmt.Errorf("ftdc: %w: ran out of metrics rebuilding document", ErrOutOfRange)
			}
			out = bsoncore.AppendInt64Element(out, key, cur[pos])
			pos++
		}
	}
	out, err = bsoncore.AppendDocumentEnd(out, idx)
	if err != nil {
		return nil, 0, fmt.Errorf("ftdc: %w: finishing reconstructed document: %v", ErrCorrupt, err)
	}
	return bsoncore.Document(out), pos, nil
}
