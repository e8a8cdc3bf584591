package ftdc

import (
	"fmt"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// maxRecursionDepth bounds how deeply extractMetrics and
// buildDocumentFromMetrics will recurse into nested objects and arrays.
// It is a structural safeguard, not a schema criterion.
const maxRecursionDepth = 10

// metricIterator yields only the metric-bearing elements of a document, in
// document order, silently skipping non-metric fields. A nil or empty
// document behaves as though it has no elements at all, which is how the
// extractor represents an "empty reference stand-in" once a schema match
// has already failed.
type metricIterator struct {
	elements []bsoncore.Element
	pos      int
}

func newMetricIterator(doc bsoncore.Document) *metricIterator {
	if len(doc) == 0 {
		return &metricIterator{}
	}
	elements, _ := doc.Elements()
	return &metricIterator{elements: elements}
}

func (it *metricIterator) more() bool {
	for it.pos < len(it.elements) {
		v, err := it.elements[it.pos].ValueErr()
		if err == nil && isMetricBearing(v.Type) {
			return true
		}
		it.pos++
	}
	return false
}

func (it *metricIterator) next() bsoncore.Element {
	e := it.elements[it.pos]
	it.pos++
	return e
}

// extractMetrics performs the lockstep walk of ref and cur, extracting
// cur's metric vector into out and reporting whether cur's schema
// (field paths, names, and type classes) matches ref's. When it does not,
// out still describes cur's full schema: once the match flag goes false
// the walk continues on cur alone, with an empty reference stand-in, so
// the caller can install cur as a new reference with a complete vector.
func extractMetrics(logger Logger, ref, cur bsoncore.Document, out []int64) ([]int64, bool, error) {
	return extractMetricsAt(logger, ref, cur, out, true, 0)
}

func extractMetricsAt(
	logger Logger,
	ref, cur bsoncore.Document,
	out []int64,
	matches bool,
	depth int,
) ([]int64, bool, error) {
	if depth > maxRecursionDepth {
		return out, false, fmt.Errorf("ftdc: extracting metrics: %w", ErrRecursionLimit)
	}

	itCur := newMetricIterator(cur)
	itRef := newMetricIterator(ref)

	for itCur.more() {
		if matches && !itRef.more() {
			logger.Debugw("ftdc schema change: current document has more fields than reference")
			matches = false
		}

		curElem := itCur.next()
		curVal, err := curElem.ValueErr()
		if err != nil {
			return out, false, fmt.Errorf("ftdc: reading current element: %w", err)
		}

		var refVal bsoncore.Value
		if matches {
			refElem := itRef.next()
			refVal, err = refElem.ValueErr()
			if err != nil {
				return out, false, fmt.Errorf("ftdc: reading reference element: %w", err)
			}

			if refElem.Key() != curElem.Key() {
				logger.Debugw("ftdc schema change: field name change",
					"from", refElem.Key(), "to", curElem.Key())
				matches = false
			} else if curVal.Type != refVal.Type && !(isNumeric(refVal.Type) && isNumeric(curVal.Type)) {
				logger.Debugw("ftdc schema change: field type change",
					"field", refElem.Key(), "from", refVal.Type, "to", curVal.Type)
				matches = false
			}
		}

		switch curVal.Type {
		case bsontype.EmbeddedDocument, bsontype.Array:
			curSub, ok := subDocument(curVal)
			if !ok {
				return out, false, fmt.Errorf("ftdc: malformed nested document")
			}

			var refSub bsoncore.Document
			if matches {
				refSub, ok = subDocument(refVal)
				if !ok {
					return out, false, fmt.Errorf("ftdc: malformed nested reference document")
				}
			}

			var subMatches bool
			out, subMatches, err = extractMetricsAt(logger, refSub, curSub, out, matches, depth+1)
			if err != nil {
				return out, false, err
			}
			matches = matches && subMatches

		default:
			out, err = coerceLeaf(curVal, out)
			if err != nil {
				return out, false, err
			}
		}
	}

	if matches && itRef.more() {
		logger.Debugw("ftdc schema change: reference document is longer than current")
		matches = false
	}

	return out, matches, nil
}
