package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

// Delimiter terminates every frame on the wire.
var Delimiter = []byte("-+")

// escapedDelimiter is the in-string form of "-+" written by Encode so that
// payload text can never produce a false frame boundary.
var escapedDelimiter = []byte(`-\u002b`)

var ErrMalformedFrame = errors.New("malformed frame")

type wirePacket struct {
	PeerID      *string `json:"peer_ID"`
	MessageType *int    `json:"message_type"`
	Data        *string `json:"data"`
}

// Encode serializes p and appends the delimiter.
func Encode(p Packet) ([]byte, error) {
	id := p.PeerID.String()
	mt := int(p.Type)
	data := p.Data
	b, err := json.Marshal(wirePacket{PeerID: &id, MessageType: &mt, Data: &data})
	if err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	// "-+" can only occur inside a JSON string here, where the escape is
	// equivalent text.
	b = bytes.ReplaceAll(b, Delimiter, escapedDelimiter)
	return append(b, Delimiter...), nil
}

// Decode parses one complete frame (without its delimiter).
func Decode(frame []byte) (Packet, error) {
	var w wirePacket
	if err := json.Unmarshal(frame, &w); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch {
	case w.PeerID == nil:
		return Packet{}, fmt.Errorf("%w: missing peer_ID", ErrMalformedFrame)
	case w.MessageType == nil:
		return Packet{}, fmt.Errorf("%w: missing message_type", ErrMalformedFrame)
	case w.Data == nil:
		return Packet{}, fmt.Errorf("%w: missing data", ErrMalformedFrame)
	}
	id, err := identity.Parse(*w.PeerID)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return Packet{PeerID: id, Type: MessageType(*w.MessageType), Data: *w.Data}, nil
}
