package sys

import (
	"testing"

	"go.viam.com/test"
)

func TestNewPidSysUsageStatserRejectsUnknownPid(t *testing.T) {
	_, err := NewPidSysUsageStatser(-1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewSelfSysUsageStatserSamples(t *testing.T) {
	statser, err := NewSelfSysUsageStatser()
	test.That(t, err, test.ShouldBeNil)

	sample, err := statser.Sample()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sample) > 0, test.ShouldBeTrue)
}
