package ftdc

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// isMetricBearing reports whether a BSON type contributes to the metric
// vector extracted from a sample, or is walked through to reach fields
// that do (objects and arrays). Every other type — strings, binary,
// object ids, and the rest — is assumed constant across samples in one
// chunk and is preserved only inside the reference sample.
func isMetricBearing(t bsontype.Type) bool {
	switch t {
	case bsontype.Double, bsontype.Int32, bsontype.Int64, bsontype.Decimal128,
		bsontype.Boolean, bsontype.DateTime, bsontype.Timestamp,
		bsontype.EmbeddedDocument, bsontype.Array:
		return true
	default:
		return false
	}
}

// isNumeric reports whether t is one of the four numeric-valued leaf
// types that loosely match each other during schema comparison: a metric
// that drifts between int32 and double across captures is not a schema
// change.
func isNumeric(t bsontype.Type) bool {
	switch t {
	case bsontype.Double, bsontype.Int32, bsontype.Int64, bsontype.Decimal128:
		return true
	default:
		return false
	}
}

// coerceLeaf converts a metric-bearing leaf value into its int64 metric
// slot(s), appending them to out. Timestamps contribute two slots
// (seconds, then increment); every other type contributes exactly one.
func coerceLeaf(v bsoncore.Value, out []int64) ([]int64, error) {
	switch v.Type {
	case bsontype.Double:
		f, ok := v.DoubleOK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed double value")
		}
		// Truncation, not rounding: fractional components are lost, and
		// values outside the signed-64 range are implementation-defined.
		// A reimplementation that rounds instead would silently break
		// bit-exact round-trip against existing chunks.
		return append(out, int64(f)), nil

	case bsontype.Int32:
		i, ok := v.Int32OK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed int32 value")
		}
		return append(out, int64(i)), nil

	case bsontype.Int64:
		i, ok := v.Int64OK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed int64 value")
		}
		return append(out, i), nil

	case bsontype.Decimal128:
		d, ok := v.Decimal128OK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed decimal128 value")
		}
		i, err := decimal128ToInt64(d)
		if err != nil {
			return nil, err
		}
		return append(out, i), nil

	case bsontype.Boolean:
		b, ok := v.BooleanOK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed boolean value")
		}
		if b {
			return append(out, 1), nil
		}
		return append(out, 0), nil

	case bsontype.DateTime:
		ms, ok := v.DateTimeOK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed datetime value")
		}
		return append(out, ms), nil

	case bsontype.Timestamp:
		secs, inc, ok := v.TimestampOK()
		if !ok {
			return nil, fmt.Errorf("ftdc: malformed timestamp value")
		}
		return append(out, int64(secs), int64(inc)), nil

	default:
		return nil, fmt.Errorf("ftdc: %v is not a metric-bearing leaf type", v.Type)
	}
}

// decimal128ToInt64 truncates a BSON Decimal128 to its int64
// representation the same way a float64 cast would: the fractional
// component is discarded and values outside the signed-64 range are
// implementation-defined.
func decimal128ToInt64(d primitive.Decimal128) (int64, error) {
	dec, err := decimal.NewFromString(d.String())
	if err != nil {
		return 0, fmt.Errorf("ftdc: parsing decimal128 %q: %w", d.String(), err)
	}
	return dec.Truncate(0).IntPart(), nil
}

// subDocument returns the nested document backing an EmbeddedDocument or
// Array value. Arrays and documents share the same BSON wire encoding, so
// an Array's bytes are reinterpreted directly as a Document.
func subDocument(v bsoncore.Value) (bsoncore.Document, bool) {
	switch v.Type {
	case bsontype.EmbeddedDocument:
		return v.DocumentOK()
	case bsontype.Array:
		arr, ok := v.ArrayOK()
		return bsoncore.Document(arr), ok
	default:
		return nil, false
	}
}
