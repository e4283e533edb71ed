// Package address re-encodes a bech32 account address for the other configured chains.
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

// ErrDerivation is returned when an address cannot be re-encoded for a target prefix.
var ErrDerivation = errors.New("address derivation error")

// Chain is the part of a configured chain the deriver needs
type Chain struct {
	Key    string
	Name   string
	Prefix string
}

// Derive converts a bech32 address to a new prefix
func Derive(address string, targetPrefix string) (string, error) {
	// Decode the original address
	_, data, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode address %q: %w", ErrDerivation, address, err)
	}

	// Encode with the new prefix
	converted, err := bech32.Encode(targetPrefix, data)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode address for prefix %s: %w", ErrDerivation, targetPrefix, err)
	}

	return converted, nil
}

// Prefix returns the human readable part of a bech32 address
func Prefix(address string) (string, error) {
	hrp, _, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode address %q: %w", ErrDerivation, address, err)
	}
	return hrp, nil
}

// Deriver builds the per-chain address map for one run
type Deriver struct {
	chains []Chain
}

// NewDeriver creates a deriver for the given chains
func NewDeriver(chains []Chain) *Deriver {
	return &Deriver{chains: chains}
}

// DeriveAll returns chain key -> address. Every chain gets the source address re-encoded
// with its prefix unless overrides holds an address for the chain key, in which case the
// override is re-encoded instead. Any failure aborts, there is no partial address map.
func (d *Deriver) DeriveAll(source string, overrides map[string]string) (map[string]string, error) {
	source = strings.TrimSpace(source)
	sourcePrefix, err := Prefix(source)
	if err != nil {
		return nil, err
	}

	addresses := make(map[string]string, len(d.chains))
	for _, chain := range d.chains {
		if override := strings.TrimSpace(overrides[chain.Key]); override != "" {
			converted, err := Derive(override, chain.Prefix)
			if err != nil {
				return nil, fmt.Errorf("chain %s override: %w", chain.Key, err)
			}
			addresses[chain.Key] = converted
			continue
		}

		if chain.Prefix == sourcePrefix {
			addresses[chain.Key] = source
			continue
		}

		converted, err := Derive(source, chain.Prefix)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", chain.Key, err)
		}
		addresses[chain.Key] = converted
	}
	return addresses, nil
}

// Chains returns the chains the deriver was built for
func (d *Deriver) Chains() []Chain {
	return d.chains
}
