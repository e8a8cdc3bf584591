//go:build unix

package sys

import (
	"fmt"

	"github.com/prometheus/procfs"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// NetUsageStatser samples host-wide network interface and socket
// summaries, producing one metric-bearing BSON document per call to
// Sample.
type NetUsageStatser struct {
	fs procfs.FS
}

// NewNetUsageStatser returns a NetUsageStatser for the host's default
// procfs mount.
func NewNetUsageStatser() (*NetUsageStatser, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("sys: opening procfs: %w", err)
	}
	return &NetUsageStatser{fs}, nil
}

// Sample reports per-interface byte/packet/error/drop counters nested
// under "ifaces", plus TCP and UDP socket summaries. A source that could
// not be read (the interface table, or the TCP or UDP summary) is omitted
// from the sample. Every summary carries a "drops" field: it is always
// zero for TCP, and zero for UDP when the kernel reports no drop counter.
func (s *NetUsageStatser) Sample() (bsoncore.Document, error) {
	idx, doc := bsoncore.AppendDocumentStart(nil)

	if dev, err := s.fs.NetDev(); err == nil {
		ifacesIdx, ifaces := bsoncore.AppendDocumentStart(nil)
		for name, line := range dev {
			lineIdx, ifaceDoc := bsoncore.AppendDocumentStart(nil)
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "rxBytes", int64(line.RxBytes))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "rxPackets", int64(line.RxPackets))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "rxErrors", int64(line.RxErrors))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "rxDropped", int64(line.RxDropped))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "txBytes", int64(line.TxBytes))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "txPackets", int64(line.TxPackets))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "txErrors", int64(line.TxErrors))
			ifaceDoc = bsoncore.AppendInt64Element(ifaceDoc, "txDropped", int64(line.TxDropped))
			ifaceDoc, err = bsoncore.AppendDocumentEnd(ifaceDoc, lineIdx)
			if err != nil {
				return nil, fmt.Errorf("sys: building iface %q sample: %w", name, err)
			}
			ifaces = bsoncore.AppendDocumentElement(ifaces, name, ifaceDoc)
		}
		ifaces, err = bsoncore.AppendDocumentEnd(ifaces, ifacesIdx)
		if err != nil {
			return nil, fmt.Errorf("sys: building ifaces sample: %w", err)
		}
		doc = bsoncore.AppendDocumentElement(doc, "ifaces", ifaces)
	}

	if tcp, err := s.fs.NetTCPSummary(); err == nil {
		doc = appendProtoSummary(doc, "tcp", tcp.TxQueueLength, tcp.RxQueueLength, tcp.UsedSockets, 0)
	}

	if udp, err := s.fs.NetUDPSummary(); err == nil {
		var drops uint64
		if udp.Drops != nil {
			drops = *udp.Drops
		}
		doc = appendProtoSummary(doc, "udp", udp.TxQueueLength, udp.RxQueueLength, udp.UsedSockets, drops)
	}

	doc, err := bsoncore.AppendDocumentEnd(doc, idx)
	if err != nil {
		return nil, fmt.Errorf("sys: building network sample: %w", err)
	}
	return bsoncore.Document(doc), nil
}

func appendProtoSummary(doc []byte, name string, txQueue, rxQueue, used, drops uint64) []byte {
	idx, sub := bsoncore.AppendDocumentStart(nil)
	sub = bsoncore.AppendInt64Element(sub, "txQueueLength", int64(txQueue))
	sub = bsoncore.AppendInt64Element(sub, "rxQueueLength", int64(rxQueue))
	sub = bsoncore.AppendInt64Element(sub, "usedSockets", int64(used))
	sub = bsoncore.AppendInt64Element(sub, "drops", int64(drops))
	sub, _ = bsoncore.AppendDocumentEnd(sub, idx)
	return bsoncore.AppendDocumentElement(doc, name, sub)
}
