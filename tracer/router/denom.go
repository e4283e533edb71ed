package router

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// IBCDenomPrefix marks a wrapped denomination, e.g. "ibc/27394FB0..."
	IBCDenomPrefix = "ibc/"
	// TransferPort is the port segment preceding every channel in a hop path
	TransferPort = "transfer"
)

// DenomKind tells a native denomination from a wrapped multi-hop one
type DenomKind int

const (
	DenomDirect DenomKind = iota
	DenomWrapped
)

func (k DenomKind) String() string {
	switch k {
	case DenomWrapped:
		return "wrapped"
	default:
		return "direct"
	}
}

// Denom is a classified denomination. Hash is only set for wrapped denominations.
type Denom struct {
	Denom string
	Kind  DenomKind
	Hash  string
}

// IsWrapped reports whether the denom needs a denom trace lookup
func (d Denom) IsWrapped() bool {
	return d.Kind == DenomWrapped
}

// ClassifyDenom is the single place that decides whether a denomination is wrapped.
// A denom is wrapped only when it starts with "ibc/" and has a non-empty hash after the
// last "/". Everything else is direct, including "factory/..." or "gamm/pool/..." denoms
// and denoms that merely contain "ibc" somewhere.
func ClassifyDenom(denom string) Denom {
	if !strings.HasPrefix(denom, IBCDenomPrefix) {
		return Denom{Denom: denom, Kind: DenomDirect}
	}
	hash := denom[strings.LastIndex(denom, "/")+1:]
	if hash == "" {
		return Denom{Denom: denom, Kind: DenomDirect}
	}
	return Denom{Denom: denom, Kind: DenomWrapped, Hash: hash}
}

// Hop is one port/channel pair of a hop path
type Hop struct {
	Port    string
	Channel string
}

// ParseHopPath parses "transfer/channel-25/transfer/channel-1" into its hops, oldest first.
// Only channels following the transfer port are kept.
func ParseHopPath(path string) []Hop {
	hops := make([]Hop, 0)
	if path == "" {
		return hops
	}
	segments := strings.Split(path, "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] != TransferPort {
			continue
		}
		hops = append(hops, Hop{Port: segments[i], Channel: segments[i+1]})
		i++
	}
	return hops
}

// Channels returns the channel ids of a hop path, oldest first
func Channels(path string) []string {
	hops := ParseHopPath(path)
	channels := make([]string, len(hops))
	for i, hop := range hops {
		channels[i] = hop.Channel
	}
	return channels
}

// ComputeDenomHash computes the wrapped denom of a full trace locally.
// trace should be in format "transfer/channel-X/denom"
func ComputeDenomHash(trace string) string {
	hash := sha256.Sum256([]byte(trace))
	return fmt.Sprintf("%s%s", IBCDenomPrefix, strings.ToUpper(hex.EncodeToString(hash[:])))
}

// TraceMatchesDenom reports whether hopPath/baseDenom hashes to the wrapped denom
func TraceMatchesDenom(denom, hopPath, baseDenom string) bool {
	trace := baseDenom
	if hopPath != "" {
		trace = hopPath + "/" + baseDenom
	}
	return strings.EqualFold(ComputeDenomHash(trace), denom)
}
