package ftdc

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.uber.org/multierr"
)

// FTDCType distinguishes the two kinds of top-level documents that appear
// in a persisted FTDC stream.
type FTDCType int32

const (
	// MetadataType marks a document that carries metadata captured once
	// (or infrequently) rather than on every sampling interval.
	MetadataType FTDCType = 0
	// MetricChunkType marks a document whose "data" field is a compressed
	// chunk as produced by Compressor.AddSample.
	MetricChunkType FTDCType = 1
)

// ArchiveFileBaseName is the conventional base name for a finalized FTDC
// archive file; InterimFile and InterimTempFile derive from it.
const ArchiveFileBaseName = "metrics"

// InterimFile returns the name of the file a writer appends live samples
// to before they are known to be durably flushed.
func InterimFile() string { return siblingFile(ArchiveFileBaseName, "interim") }

// InterimTempFile returns the name of the file a writer stages a new
// interim generation in before atomically replacing InterimFile.
func InterimTempFile() string { return siblingFile(ArchiveFileBaseName, "interim.temp") }

// siblingFile joins base and suffix the way the on-disk archive naming
// scheme does, without touching the filesystem: callers decide what
// directory these names live in.
func siblingFile(base, suffix string) string {
	return strings.Join([]string{base, suffix}, ".")
}

// ValidateEnvelope checks the three fields every top-level envelope
// document must carry — "_id", "type", and, depending on type, "doc" or
// "data" — and reports every problem found, not just the first: the
// checks are independent of each other, so a caller debugging a
// malformed archive can see the whole picture in one error.
func ValidateEnvelope(envelope bsoncore.Document) error {
	var err error

	if _, idErr := EnvelopeID(envelope); idErr != nil {
		err = multierr.Append(err, idErr)
	}

	typ, typErr := EnvelopeType(envelope)
	if typErr != nil {
		return multierr.Append(err, typErr)
	}

	switch typ {
	case MetadataType:
		if _, decErr := DecodeMetadataDocument(envelope); decErr != nil {
			err = multierr.Append(err, decErr)
		}
	case MetricChunkType:
		if _, decErr := DecodeMetricChunkDocument(envelope); decErr != nil {
			err = multierr.Append(err, decErr)
		}
	default:
		err = multierr.Append(err, fmt.Errorf("ftdc: %w: unrecognized envelope type %d", ErrMalformed, typ))
	}

	return err
}

// EncodeMetadataDocument wraps doc as a top-level metadata envelope:
//
//	{ _id: date, type: MetadataType, doc: doc }
func EncodeMetadataDocument(date time.Time, doc bsoncore.Document) bsoncore.Document {
	idx, out := bsoncore.AppendDocumentStart(nil)
	out = bsoncore.AppendDateTimeElement(out, "_id", date.UnixMilli())
	out = bsoncore.AppendInt32Element(out, "type", int32(MetadataType))
	out = bsoncore.AppendDocumentElement(out, "doc", doc)
	out, _ = bsoncore.AppendDocumentEnd(out, idx)
	return bsoncore.Document(out)
}

// EncodeMetricChunkDocument wraps a compressed chunk (as produced by
// Compressor.AddSample) as a top-level metric-chunk envelope:
//
//	{ _id: date, type: MetricChunkType, data: chunk }
func EncodeMetricChunkDocument(date time.Time, chunk []byte) bsoncore.Document {
	idx, out := bsoncore.AppendDocumentStart(nil)
	out = bsoncore.AppendDateTimeElement(out, "_id", date.UnixMilli())
	out = bsoncore.AppendInt32Element(out, "type", int32(MetricChunkType))
	out = bsoncore.AppendBinaryElement(out, "data", 0x00, chunk)
	out, _ = bsoncore.AppendDocumentEnd(out, idx)
	return bsoncore.Document(out)
}

// EnvelopeID returns the "_id" field of a top-level envelope document, as
// written by EncodeMetadataDocument or EncodeMetricChunkDocument.
func EnvelopeID(envelope bsoncore.Document) (time.Time, error) {
	v, err := envelope.LookupErr("_id")
	if err != nil {
		return time.Time{}, fmt.Errorf("ftdc: %w: envelope missing _id: %v", ErrMalformed, err)
	}
	ms, ok := v.DateTimeOK()
	if !ok {
		return time.Time{}, fmt.Errorf("ftdc: %w: envelope _id is not a date", ErrMalformed)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// EnvelopeType returns the "type" field of a top-level envelope document.
func EnvelopeType(envelope bsoncore.Document) (FTDCType, error) {
	v, err := envelope.LookupErr("type")
	if err != nil {
		return 0, fmt.Errorf("ftdc: %w: envelope missing type: %v", ErrMalformed, err)
	}
	t, ok := v.Int32OK()
	if !ok {
		return 0, fmt.Errorf("ftdc: %w: envelope type is not an int32", ErrMalformed)
	}
	return FTDCType(t), nil
}

// DecodeMetadataDocument extracts the wrapped "doc" field from a metadata
// envelope. It fails with ErrMalformed if the envelope's type is not
// MetadataType.
func DecodeMetadataDocument(envelope bsoncore.Document) (bsoncore.Document, error) {
	typ, err := EnvelopeType(envelope)
	if err != nil {
		return nil, err
	}
	if typ != MetadataType {
		return nil, fmt.Errorf("ftdc: %w: envelope type %d is not MetadataType", ErrMalformed, typ)
	}
	v, err := envelope.LookupErr("doc")
	if err != nil {
		return nil, fmt.Errorf("ftdc: %w: metadata envelope missing doc: %v", ErrMalformed, err)
	}
	doc, ok := v.DocumentOK()
	if !ok {
		return nil, fmt.Errorf("ftdc: %w: metadata envelope doc is not a document", ErrMalformed)
	}
	return doc, nil
}

// DecodeMetricChunkDocument extracts the wrapped compressed chunk bytes
// from a metric-chunk envelope. It fails with ErrMalformed if the
// envelope's type is not MetricChunkType.
func DecodeMetricChunkDocument(envelope bsoncore.Document) ([]byte, error) {
	typ, err := EnvelopeType(envelope)
	if err != nil {
		return nil, err
	}
	if typ != MetricChunkType {
		return nil, fmt.Errorf("ftdc: %w: envelope type %d is not MetricChunkType", ErrMalformed, typ)
	}
	v, err := envelope.LookupErr("data")
	if err != nil {
		return nil, fmt.Errorf("ftdc: %w: metric chunk envelope missing data: %v", ErrMalformed, err)
	}
	_, data, ok := v.BinaryOK()
	if !ok {
		return nil, fmt.Errorf("ftdc: %w: metric chunk envelope data is not binary", ErrMalformed)
	}
	return data, nil
}
