// Package marketdata implements the gateway that parses ingress market-data
// messages, fans them out per symbol, and drives book/strategy callbacks
// (§4.4).
package marketdata

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"matchcore/fxp"
)

// MessageType discriminates the wire header's message_type field (§6).
// §6 names the field but leaves concrete codes unspecified, so the two
// snapshot codes below are this implementation's choice: the snapshot
// body itself carries no side (just {symbol, level_count, timestamp} +
// levels), so the side a snapshot installs into is distinguished at the
// message_type level instead of widening the body layout.
type MessageType uint8

const (
	MessageIncremental MessageType = iota + 1
	MessageSnapshotBid
	MessageSnapshotAsk
)

// headerSize is {message_type:1}{version:1}{length:2}{sequence:4}, all
// little-endian per §6.
const headerSize = 1 + 1 + 2 + 4

// incrementalBodySize is {symbol:4}{price:8}{quantity:8}{side:1}{timestamp:8}.
const incrementalBodySize = 4 + 8 + 8 + 1 + 8

// snapshotHeaderSize is {symbol:4}{level_count:2}{timestamp:8}.
const snapshotHeaderSize = 4 + 2 + 8

// snapshotLevelSize is {price:8}{quantity:8}.
const snapshotLevelSize = 8 + 8

// ErrMalformed is returned for any header/body that fails length or
// bounds validation (§4.4 "rejects malformed messages with a parse-error
// counter").
var ErrMalformed = errors.New("marketdata: malformed message")

// Header is the fixed-size wire header common to every message.
type Header struct {
	Type     MessageType
	Version  uint8
	Length   uint16
	Sequence uint32
}

// DecodeHeader parses the fixed header from the front of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, errors.Wrap(ErrMalformed, "short header")
	}
	h := Header{
		Type:     MessageType(buf[0]),
		Version:  buf[1],
		Length:   binary.LittleEndian.Uint16(buf[2:4]),
		Sequence: binary.LittleEndian.Uint32(buf[4:8]),
	}
	if int(h.Length) > len(buf)-headerSize {
		return Header{}, errors.Wrap(ErrMalformed, "length exceeds buffer")
	}
	return h, nil
}

// IncrementalBody is the decoded payload of a MessageIncremental message.
type IncrementalBody struct {
	Symbol    fxp.SymbolID
	Price     fxp.Price
	Quantity  fxp.Qty
	Side      uint8
	Timestamp uint64
}

// DecodeIncremental parses the body following a Header of type
// MessageIncremental.
func DecodeIncremental(body []byte) (IncrementalBody, error) {
	if len(body) < incrementalBodySize {
		return IncrementalBody{}, errors.Wrap(ErrMalformed, "short incremental body")
	}
	return IncrementalBody{
		Symbol:    fxp.SymbolID(binary.LittleEndian.Uint32(body[0:4])),
		Price:     fxp.Price(binary.LittleEndian.Uint64(body[4:12])),
		Quantity:  fxp.Qty(binary.LittleEndian.Uint64(body[12:20])),
		Side:      body[20],
		Timestamp: binary.LittleEndian.Uint64(body[21:29]),
	}, nil
}

// SnapshotLevel is one price/quantity row of a decoded snapshot.
type SnapshotLevel struct {
	Price    fxp.Price
	Quantity fxp.Qty
}

// SnapshotBody is the decoded payload of a MessageSnapshotBid or
// MessageSnapshotAsk message.
type SnapshotBody struct {
	Symbol    fxp.SymbolID
	Timestamp uint64
	Levels    []SnapshotLevel
}

// DecodeSnapshot parses the body following a Header of type
// MessageSnapshotBid or MessageSnapshotAsk.
func DecodeSnapshot(body []byte) (SnapshotBody, error) {
	if len(body) < snapshotHeaderSize {
		return SnapshotBody{}, errors.Wrap(ErrMalformed, "short snapshot header")
	}
	symbol := fxp.SymbolID(binary.LittleEndian.Uint32(body[0:4]))
	levelCount := binary.LittleEndian.Uint16(body[4:6])
	timestamp := binary.LittleEndian.Uint64(body[6:14])

	want := snapshotHeaderSize + int(levelCount)*snapshotLevelSize
	if len(body) < want {
		return SnapshotBody{}, errors.Wrap(ErrMalformed, "snapshot body shorter than level_count implies")
	}

	levels := make([]SnapshotLevel, levelCount)
	offset := snapshotHeaderSize
	for i := range levels {
		levels[i] = SnapshotLevel{
			Price:    fxp.Price(binary.LittleEndian.Uint64(body[offset : offset+8])),
			Quantity: fxp.Qty(binary.LittleEndian.Uint64(body[offset+8 : offset+16])),
		}
		offset += snapshotLevelSize
	}

	return SnapshotBody{Symbol: symbol, Timestamp: timestamp, Levels: levels}, nil
}
