//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package slhdsa

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/signalapp/validator-keygen/scheme"
)

// PublicKey is an SLH-DSA public key: the pk_seed and pk_root components of
// FIPS 205. Its canonical encoding is pk_seed || pk_root.
type PublicKey struct {
	scheme *Scheme
	PKSeed []byte
	PKRoot []byte
}

// SecretKey is an SLH-DSA private key plus its activation window. Its
// canonical encoding is the big-endian window header followed by
// sk_seed || sk_prf || pk_seed || pk_root.
type SecretKey struct {
	scheme          *Scheme
	ActivationEpoch uint64
	NumActiveEpochs uint64
	SKSeed          []byte
	SKPrf           []byte
	PKSeed          []byte
	PKRoot          []byte
}

// publicKeyJSON is the interchange form of a public key. Components are kept
// as separate lowercase-hex fields, mirroring the in-memory representation
// rather than the canonical wire form.
type publicKeyJSON struct {
	Scheme string `json:"scheme"`
	PKSeed string `json:"pk_seed"`
	PKRoot string `json:"pk_root"`
}

type secretKeyJSON struct {
	Scheme          string `json:"scheme"`
	ActivationEpoch uint64 `json:"activation_epoch"`
	NumActiveEpochs uint64 `json:"num_active_epochs"`
	SKSeed          string `json:"sk_seed"`
	SKPrf           string `json:"sk_prf"`
	PKSeed          string `json:"pk_seed"`
	PKRoot          string `json:"pk_root"`
}

func (k *PublicKey) CanonicalBytes() ([]byte, error) {
	out := make([]byte, 0, len(k.PKSeed)+len(k.PKRoot))
	out = append(out, k.PKSeed...)
	out = append(out, k.PKRoot...)
	return out, nil
}

func (k *PublicKey) Interchange() ([]byte, error) {
	return json.MarshalIndent(publicKeyJSON{
		Scheme: k.scheme.Name(),
		PKSeed: hex.EncodeToString(k.PKSeed),
		PKRoot: hex.EncodeToString(k.PKRoot),
	}, "", "  ")
}

// Equal reports whether two public keys have the same components.
func (k *PublicKey) Equal(other *PublicKey) bool {
	return other != nil &&
		k.scheme.Name() == other.scheme.Name() &&
		bytes.Equal(k.PKSeed, other.PKSeed) &&
		bytes.Equal(k.PKRoot, other.PKRoot)
}

func (k *SecretKey) CanonicalBytes() ([]byte, error) {
	out := make([]byte, 0, windowHeaderSize+len(k.SKSeed)+len(k.SKPrf)+len(k.PKSeed)+len(k.PKRoot))
	out = binary.BigEndian.AppendUint64(out, k.ActivationEpoch)
	out = binary.BigEndian.AppendUint64(out, k.NumActiveEpochs)
	out = append(out, k.SKSeed...)
	out = append(out, k.SKPrf...)
	out = append(out, k.PKSeed...)
	out = append(out, k.PKRoot...)
	return out, nil
}

func (k *SecretKey) Interchange() ([]byte, error) {
	return json.MarshalIndent(secretKeyJSON{
		Scheme:          k.scheme.Name(),
		ActivationEpoch: k.ActivationEpoch,
		NumActiveEpochs: k.NumActiveEpochs,
		SKSeed:          hex.EncodeToString(k.SKSeed),
		SKPrf:           hex.EncodeToString(k.SKPrf),
		PKSeed:          hex.EncodeToString(k.PKSeed),
		PKRoot:          hex.EncodeToString(k.PKRoot),
	}, "", "  ")
}

// Public returns the public half of the key pair.
func (k *SecretKey) Public() *PublicKey {
	return &PublicKey{scheme: k.scheme, PKSeed: dup(k.PKSeed), PKRoot: dup(k.PKRoot)}
}

func (s *Scheme) PublicKeyFromCanonicalBytes(raw []byte) (scheme.PublicKey, error) {
	n := s.p.n
	if len(raw) != 2*n {
		return nil, fmt.Errorf("canonical %s public key must be %d bytes, got %d", s.p.name, 2*n, len(raw))
	}
	return &PublicKey{scheme: s, PKSeed: dup(raw[:n]), PKRoot: dup(raw[n:])}, nil
}

func (s *Scheme) SecretKeyFromCanonicalBytes(raw []byte) (scheme.SecretKey, error) {
	n := s.p.n
	if len(raw) != windowHeaderSize+4*n {
		return nil, fmt.Errorf("canonical %s secret key must be %d bytes, got %d", s.p.name, windowHeaderSize+4*n, len(raw))
	}
	activationEpoch := binary.BigEndian.Uint64(raw[0:8])
	numActiveEpochs := binary.BigEndian.Uint64(raw[8:16])
	if err := scheme.CheckWindow(activationEpoch, numActiveEpochs, Lifetime); err != nil {
		return nil, err
	}
	body := raw[windowHeaderSize:]
	return &SecretKey{
		scheme:          s,
		ActivationEpoch: activationEpoch,
		NumActiveEpochs: numActiveEpochs,
		SKSeed:          dup(body[:n]),
		SKPrf:           dup(body[n : 2*n]),
		PKSeed:          dup(body[2*n : 3*n]),
		PKRoot:          dup(body[3*n:]),
	}, nil
}

func (s *Scheme) PublicKeyFromInterchange(text []byte) (scheme.PublicKey, error) {
	var parsed publicKeyJSON
	if err := json.Unmarshal(text, &parsed); err != nil {
		return nil, fmt.Errorf("parsing interchange public key: %w", err)
	}
	if parsed.Scheme != s.p.name {
		return nil, fmt.Errorf("interchange public key is for scheme %q, want %q", parsed.Scheme, s.p.name)
	}
	pkSeed, err := decodeComponent("pk_seed", parsed.PKSeed, s.p.n)
	if err != nil {
		return nil, err
	}
	pkRoot, err := decodeComponent("pk_root", parsed.PKRoot, s.p.n)
	if err != nil {
		return nil, err
	}
	return &PublicKey{scheme: s, PKSeed: pkSeed, PKRoot: pkRoot}, nil
}

func (s *Scheme) SecretKeyFromInterchange(text []byte) (scheme.SecretKey, error) {
	var parsed secretKeyJSON
	if err := json.Unmarshal(text, &parsed); err != nil {
		return nil, fmt.Errorf("parsing interchange secret key: %w", err)
	}
	if parsed.Scheme != s.p.name {
		return nil, fmt.Errorf("interchange secret key is for scheme %q, want %q", parsed.Scheme, s.p.name)
	}
	if err := scheme.CheckWindow(parsed.ActivationEpoch, parsed.NumActiveEpochs, Lifetime); err != nil {
		return nil, err
	}
	skSeed, err := decodeComponent("sk_seed", parsed.SKSeed, s.p.n)
	if err != nil {
		return nil, err
	}
	skPrf, err := decodeComponent("sk_prf", parsed.SKPrf, s.p.n)
	if err != nil {
		return nil, err
	}
	pkSeed, err := decodeComponent("pk_seed", parsed.PKSeed, s.p.n)
	if err != nil {
		return nil, err
	}
	pkRoot, err := decodeComponent("pk_root", parsed.PKRoot, s.p.n)
	if err != nil {
		return nil, err
	}
	return &SecretKey{
		scheme:          s,
		ActivationEpoch: parsed.ActivationEpoch,
		NumActiveEpochs: parsed.NumActiveEpochs,
		SKSeed:          skSeed,
		SKPrf:           skPrf,
		PKSeed:          pkSeed,
		PKRoot:          pkRoot,
	}, nil
}

func decodeComponent(name, value string, size int) ([]byte, error) {
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("field %s is not valid hex: %w", name, err)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("field %s must be %d bytes, got %d", name, size, len(raw))
	}
	return raw, nil
}

func dup(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
