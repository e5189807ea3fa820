// Package identity defines the fixed-width peer identifier used to address
// sessions on the relay.
package identity

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Size is the length of an identity in bytes.
const Size = 16

// EncodedLen is the length of the base64 text form of one identity.
const EncodedLen = 24

var (
	ErrInvalidLength   = errors.New("identity must be exactly 16 bytes")
	ErrInvalidEncoding = errors.New("identity is not base64 of 16 bytes")
)

// ID is an opaque 16-byte peer identifier. The zero value is a valid ID
// (all zero bytes) but is never handed out by New.
type ID [Size]byte

// Server is the reserved identity used as the sender of server-originated
// control packets. It is never assigned to a peer.
var Server = ID{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// New returns a fresh random identity.
func New() ID {
	for {
		id := ID(uuid.New())
		if id != Server {
			return id
		}
	}
}

// FromBytes copies b into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes the base64 wire form of an identity.
func Parse(s string) (ID, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(b) != Size {
		return ID{}, fmt.Errorf("%w: decoded %d bytes", ErrInvalidEncoding, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// String returns the base64 wire form.
func (id ID) String() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// Bytes returns a copy of the raw identity bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// IsServer reports whether id is the reserved server identity.
func (id ID) IsServer() bool {
	return id == Server
}

// Join concatenates the base64 forms of ids with no separator.
func Join(ids []ID) string {
	buf := make([]byte, 0, len(ids)*EncodedLen)
	for _, id := range ids {
		buf = base64.StdEncoding.AppendEncode(buf, id[:])
	}
	return string(buf)
}

// Split is the inverse of Join. It fails if s is not a whole number of
// encoded identities or any chunk does not decode.
func Split(s string) ([]ID, error) {
	if len(s)%EncodedLen != 0 {
		return nil, fmt.Errorf("%w: list length %d is not a multiple of %d", ErrInvalidEncoding, len(s), EncodedLen)
	}
	ids := make([]ID, 0, len(s)/EncodedLen)
	for i := 0; i < len(s); i += EncodedLen {
		id, err := Parse(s[i : i+EncodedLen])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
