// Package confluent decodes Avro payloads in the Confluent wire format into
// generic records.
package confluent

import (
	"encoding/binary"
	"fmt"

	"github.com/hamba/avro/v2"
)

const (
	magicByte  = 0x00
	headerSize = 5
)

// Frame prepends the Confluent header (magic byte and big-endian schema id)
// to an Avro body.
func Frame(schemaID int, body []byte) []byte {
	out := make([]byte, headerSize+len(body))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:headerSize], uint32(schemaID))
	copy(out[headerSize:], body)
	return out
}

// ParseFrame splits a framed payload into its schema id and Avro body. The
// body aliases payload.
func ParseFrame(payload []byte) (int, []byte, error) {
	if len(payload) < headerSize {
		return 0, nil, &DecodeError{Err: fmt.Errorf("%w: %d byte header", ErrTruncated, len(payload))}
	}
	if payload[0] != magicByte {
		return 0, nil, &DecodeError{Err: fmt.Errorf("%w: 0x%02x", ErrMagicByte, payload[0])}
	}
	return int(binary.BigEndian.Uint32(payload[1:headerSize])), payload[headerSize:], nil
}

// Marshal encodes v with schema and frames it under schemaID.
func Marshal(schema avro.Schema, schemaID int, v any) ([]byte, error) {
	body, err := avro.Marshal(schema, v)
	if err != nil {
		return nil, fmt.Errorf("marshal avro: %w", err)
	}
	return Frame(schemaID, body), nil
}
