// ftdcdump reads a file of concatenated BSON envelope documents — as
// written by an FTDC archive writer — and prints the reconstructed
// sample documents as extended JSON, one per line.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/mongodb-labs/ftdc-go/ftdc"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ftdcdump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var limit int
	var metadataOnly bool

	flagSet := pflag.NewFlagSet("ftdcdump", pflag.ContinueOnError)
	flagSet.IntVar(&limit, "limit", 0, "stop after printing this many sample documents (0 means unlimited)")
	flagSet.BoolVar(&metadataOnly, "metadata-only", false, "print only metadata envelopes, skipping metric chunks")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: ftdcdump [flags] <path-to-ftdc-archive>")
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	return dump(f, os.Stdout, limit, metadataOnly)
}

func dump(r io.Reader, w io.Writer, limit int, metadataOnly bool) error {
	d := ftdc.NewDecompressor()
	printed := 0

	for {
		envelope, err := readDocument(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading envelope: %w", err)
		}

		if err := ftdc.ValidateEnvelope(envelope); err != nil {
			return fmt.Errorf("validating envelope: %w", err)
		}

		typ, err := ftdc.EnvelopeType(envelope)
		if err != nil {
			return err
		}

		switch typ {
		case ftdc.MetadataType:
			doc, err := ftdc.DecodeMetadataDocument(envelope)
			if err != nil {
				return err
			}
			if err := printDoc(w, doc); err != nil {
				return err
			}

		case ftdc.MetricChunkType:
			if metadataOnly {
				continue
			}
			chunk, err := ftdc.DecodeMetricChunkDocument(envelope)
			if err != nil {
				return err
			}
			docs, err := d.Decode(chunk)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				if err := printDoc(w, doc); err != nil {
					return err
				}
				printed++
				if limit > 0 && printed >= limit {
					return nil
				}
			}

		default:
			return fmt.Errorf("unrecognized envelope type %d", typ)
		}
	}
}

func printDoc(w io.Writer, doc bsoncore.Document) error {
	j, err := bson.MarshalExtJSON(bson.Raw(doc), false, false)
	if err != nil {
		return fmt.Errorf("marshaling document to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(j))
	return err
}

// readDocument reads one complete BSON document from r using its own
// 4-byte little-endian length prefix.
func readDocument(r io.Reader) (bsoncore.Document, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(lenBuf[:]))
	if n < 5 {
		return nil, fmt.Errorf("document length %d is too short", n)
	}
	buf := make([]byte, n)
	copy(buf, lenBuf[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, fmt.Errorf("reading document body: %w", err)
	}
	return bsoncore.Document(buf), nil
}
