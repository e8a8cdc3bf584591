package ftdc

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
	"go.viam.com/test"
)

func TestMetadataEnvelopeRoundTrip(t *testing.T) {
	inner := marshalDoc(t, bson.D{{Key: "host", Value: "localhost"}})
	date := time.Unix(1234, 0)

	envelope := EncodeMetadataDocument(date, inner)

	gotDate, err := EnvelopeID(envelope)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotDate.Unix(), test.ShouldEqual, date.Unix())

	typ, err := EnvelopeType(envelope)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, typ, test.ShouldEqual, MetadataType)

	doc, err := DecodeMetadataDocument(envelope)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []byte(doc), test.ShouldResemble, []byte(inner))
}

func TestMetricChunkEnvelopeRoundTrip(t *testing.T) {
	chunk := []byte{0x01, 0x02, 0x03, 0x04}
	date := time.Unix(5678, 0)

	envelope := EncodeMetricChunkDocument(date, chunk)

	typ, err := EnvelopeType(envelope)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, typ, test.ShouldEqual, MetricChunkType)

	data, err := DecodeMetricChunkDocument(envelope)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data, test.ShouldResemble, chunk)
}

func TestDecodeMetadataDocumentRejectsWrongType(t *testing.T) {
	envelope := EncodeMetricChunkDocument(time.Now(), []byte{0x01})
	_, err := DecodeMetadataDocument(envelope)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeMetricChunkDocumentRejectsWrongType(t *testing.T) {
	inner := marshalDoc(t, bson.D{{Key: "a", Value: int32(1)}})
	envelope := EncodeMetadataDocument(time.Now(), inner)
	_, err := DecodeMetricChunkDocument(envelope)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateEnvelopeAcceptsWellFormedEnvelopes(t *testing.T) {
	inner := marshalDoc(t, bson.D{{Key: "a", Value: int32(1)}})
	test.That(t, ValidateEnvelope(EncodeMetadataDocument(time.Now(), inner)), test.ShouldBeNil)
	test.That(t, ValidateEnvelope(EncodeMetricChunkDocument(time.Now(), []byte{0x01})), test.ShouldBeNil)
}

func TestValidateEnvelopeReportsUnrecognizedType(t *testing.T) {
	idx, doc := bsoncore.AppendDocumentStart(nil)
	doc = bsoncore.AppendDateTimeElement(doc, "_id", time.Now().UnixMilli())
	doc = bsoncore.AppendInt32Element(doc, "type", 99)
	doc, _ = bsoncore.AppendDocumentEnd(doc, idx)

	err := ValidateEnvelope(bsoncore.Document(doc))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInterimFileNames(t *testing.T) {
	test.That(t, InterimFile(), test.ShouldEqual, "metrics.interim")
	test.That(t, InterimTempFile(), test.ShouldEqual, "metrics.interim.temp")
}
