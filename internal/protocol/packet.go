// Package protocol implements the signaling wire format: JSON packets
// terminated by a two-byte delimiter on a byte stream.
package protocol

import (
	"strconv"

	"github.com/mossy-p/snp-signaling/internal/identity"
)

// MessageType identifies the kind of signaling packet.
type MessageType int

const (
	StartAdvertising   MessageType = 1
	StopAdvertising    MessageType = 2
	RequestAdvertisers MessageType = 3
	SolicitAds         MessageType = 4 // reserved, relayed
	GameAd             MessageType = 5 // reserved, relayed
	LocalDescription   MessageType = 101
	Candidate          MessageType = 102
	CandidatesDone     MessageType = 103
	ServerSetID        MessageType = 254
	ServerEcho         MessageType = 255
)

var typeNames = map[MessageType]string{
	StartAdvertising:   "START_ADVERTISING",
	StopAdvertising:    "STOP_ADVERTISING",
	RequestAdvertisers: "REQUEST_ADVERTISERS",
	SolicitAds:         "SOLICIT_ADS",
	GameAd:             "GAME_AD",
	LocalDescription:   "LOCAL_DESCRIPTION",
	Candidate:          "CANDIDATE",
	CandidatesDone:     "CANDIDATES_DONE",
	ServerSetID:        "SERVER_SET_ID",
	ServerEcho:         "SERVER_ECHO",
}

// Known reports whether t is one of the defined message types. Unknown
// types are still valid on the wire and are relayed opaquely.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// Packet is one decoded signaling message.
//
// PeerID is overloaded on direction: on packets from a client it names the
// destination peer (or the server), on packets delivered to a client it
// names the sender.
type Packet struct {
	PeerID identity.ID
	Type   MessageType
	Data   string
}

// WithPeer returns a copy of p addressed with id.
func (p Packet) WithPeer(id identity.ID) Packet {
	return Packet{PeerID: id, Type: p.Type, Data: p.Data}
}
