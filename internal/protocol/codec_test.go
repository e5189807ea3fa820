package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		pkt  Packet
	}{
		{"set id from server", Packet{PeerID: identity.Server, Type: ServerSetID, Data: identity.New().String()}},
		{"empty data", Packet{PeerID: identity.New(), Type: StartAdvertising}},
		{"sdp payload", Packet{PeerID: identity.New(), Type: LocalDescription, Data: "v=0\r\no=- 46117 2 IN IP4 127.0.0.1\r\n"}},
		{"delimiter inside data", Packet{PeerID: identity.New(), Type: Candidate, Data: "a-+b-+-+"}},
		{"unicode", Packet{PeerID: identity.New(), Type: GameAd, Data: "ゲーム <&> \"quoted\""}},
		{"unknown type", Packet{PeerID: identity.New(), Type: 42, Data: "opaque"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.pkt)
			require.NoError(t, err)
			require.True(t, bytes.HasSuffix(encoded, Delimiter))

			body := encoded[:len(encoded)-len(Delimiter)]
			assert.NotContains(t, string(body), "-+")

			decoded, err := Decode(body)
			require.NoError(t, err)
			assert.Equal(t, tc.pkt, decoded)
		})
	}
}

func TestEncodeWireFields(t *testing.T) {
	id := identity.New()
	encoded, err := Encode(Packet{PeerID: id, Type: RequestAdvertisers, Data: "x"})
	require.NoError(t, err)

	assert.Contains(t, string(encoded), `"message_type":3`)
	assert.Contains(t, string(encoded), `"data":"x"`)
	assert.Contains(t, string(encoded), `"peer_ID":"`)
}

func TestDecodeMalformed(t *testing.T) {
	valid := identity.New().String()
	testCases := map[string]string{
		"not json":           `hello`,
		"truncated":          `{"peer_ID":"` + valid,
		"missing peer":       `{"message_type":1,"data":""}`,
		"missing type":       `{"peer_ID":"` + valid + `","data":""}`,
		"missing data":       `{"peer_ID":"` + valid + `","message_type":1}`,
		"type is string":     `{"peer_ID":"` + valid + `","message_type":"1","data":""}`,
		"bad base64":         `{"peer_ID":"***","message_type":1,"data":""}`,
		"short identity":     `{"peer_ID":"AAAA","message_type":1,"data":""}`,
		"array instead":      `[1,2,3]`,
		"null data":          `{"peer_ID":"` + valid + `","message_type":1,"data":null}`,
		"fractional type":    `{"peer_ID":"` + valid + `","message_type":1.5,"data":""}`,
		"identity wrong len": `{"peer_ID":"/////////////////////////w==","message_type":1,"data":""}`,
	}
	for name, frame := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestDecodeAcceptsExtraFields(t *testing.T) {
	id := identity.New()
	frame := `{"peer_ID":"` + id.String() + `","message_type":102,"data":"c","extra":true}`
	pkt, err := Decode([]byte(frame))
	require.NoError(t, err)
	assert.Equal(t, Packet{PeerID: id, Type: Candidate, Data: "c"}, pkt)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "SERVER_SET_ID", ServerSetID.String())
	assert.Equal(t, "UNKNOWN(77)", MessageType(77).String())
	assert.True(t, CandidatesDone.Known())
	assert.False(t, MessageType(0).Known())
}
