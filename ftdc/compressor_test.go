package ftdc

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.viam.com/test"
)

func newTestCompressor(t *testing.T, maxSamples int) *Compressor {
	t.Helper()
	c, err := NewCompressor(&Config{MaxSamplesPerArchiveMetricChunk: maxSamples})
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestNewCompressorRejectsInvalidConfig(t *testing.T) {
	_, err := NewCompressor(&Config{MaxSamplesPerArchiveMetricChunk: 1})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddSampleFirstSampleInstallsReference(t *testing.T) {
	c := newTestCompressor(t, 10)
	test.That(t, c.HasDataToFlush(), test.ShouldBeFalse)

	doc := marshalDoc(t, bson.D{{Key: "v", Value: int32(1)}})
	res, err := c.AddSample(doc, time.Unix(0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, HasSpace)
	test.That(t, c.HasDataToFlush(), test.ShouldBeTrue)
	test.That(t, c.SampleCount(), test.ShouldEqual, 0)
}

func TestAddSampleAccumulatesUntilCapacity(t *testing.T) {
	c := newTestCompressor(t, 3) // Dmax = 2: reference + 2 deltas per chunk
	base := time.Unix(1000, 0)

	res, err := c.AddSample(marshalDoc(t, bson.D{{Key: "v", Value: int32(1)}}), base)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, HasSpace)

	res, err = c.AddSample(marshalDoc(t, bson.D{{Key: "v", Value: int32(2)}}), base.Add(time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, HasSpace)
	test.That(t, c.SampleCount(), test.ShouldEqual, 1)

	res, err = c.AddSample(marshalDoc(t, bson.D{{Key: "v", Value: int32(3)}}), base.Add(2*time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, CompressorFull)
	test.That(t, len(res.Chunk) > 0, test.ShouldBeTrue)
	test.That(t, c.HasDataToFlush(), test.ShouldBeFalse)
}

func TestAddSampleSchemaChangeFlushesAndReinstallsReference(t *testing.T) {
	c := newTestCompressor(t, 10)
	base := time.Unix(2000, 0)

	_, err := c.AddSample(marshalDoc(t, bson.D{{Key: "a", Value: int32(1)}}), base)
	test.That(t, err, test.ShouldBeNil)

	res, err := c.AddSample(marshalDoc(t, bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: int32(2)}}), base.Add(time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, SchemaChanged)
	test.That(t, len(res.Chunk) > 0, test.ShouldBeTrue)
	test.That(t, c.HasDataToFlush(), test.ShouldBeTrue)
	test.That(t, c.SampleCount(), test.ShouldEqual, 0)
}

func TestResetClearsAccumulatedState(t *testing.T) {
	c := newTestCompressor(t, 10)
	_, err := c.AddSample(marshalDoc(t, bson.D{{Key: "v", Value: int32(1)}}), time.Now())
	test.That(t, err, test.ShouldBeNil)

	c.Reset()
	test.That(t, c.HasDataToFlush(), test.ShouldBeFalse)
	test.That(t, c.SampleCount(), test.ShouldEqual, 0)
}

func TestArrayOffsetLayout(t *testing.T) {
	test.That(t, ArrayOffset(4, 0, 0), test.ShouldEqual, 0)
	test.That(t, ArrayOffset(4, 1, 0), test.ShouldEqual, 1)
	test.That(t, ArrayOffset(4, 0, 1), test.ShouldEqual, 4)
}
