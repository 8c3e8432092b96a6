//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package schemetest provides a small deterministic scheme implementation
// for exercising provisioning code without a real parameter set. The public
// key is exactly the bytes read from the randomness source and the secret
// key is derived from them, so tests can predict every encoding.
package schemetest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalapp/validator-keygen/scheme"
)

const lifetime = uint64(1) << 16

// Scheme implements scheme.Scheme with a configurable public-key size.
type Scheme struct {
	keySize int
}

// New returns a test scheme whose canonical public keys are keySize bytes.
func New(keySize int) *Scheme {
	if keySize <= 0 {
		panic("schemetest: key size must be positive")
	}
	return &Scheme{keySize: keySize}
}

func (s *Scheme) Name() string         { return "test-scheme" }
func (s *Scheme) HashFunction() string { return "test-hash" }
func (s *Scheme) Encoding() string     { return "test-raw" }
func (s *Scheme) Lifetime() uint64     { return lifetime }
func (s *Scheme) SeedSize() int        { return s.keySize }

func (s *Scheme) KeyGen(rng io.Reader, activationEpoch, numActiveEpochs uint64) (scheme.PublicKey, scheme.SecretKey, error) {
	if err := scheme.CheckWindow(activationEpoch, numActiveEpochs, lifetime); err != nil {
		return nil, nil, err
	}
	body := make([]byte, s.keySize)
	if _, err := io.ReadFull(rng, body); err != nil {
		return nil, nil, fmt.Errorf("reading key material: %w", err)
	}
	pub := &PublicKey{scheme: s, Body: body}
	sec := &SecretKey{
		scheme:          s,
		ActivationEpoch: activationEpoch,
		NumActiveEpochs: numActiveEpochs,
		Body:            secretBody(body),
	}
	return pub, sec, nil
}

// secretBody derives the secret half from the public body so tests can
// cross-check the two without holding on to the key pair.
func secretBody(pub []byte) []byte {
	out := make([]byte, len(pub))
	for i, b := range pub {
		out[i] = b ^ 0xa5
	}
	return out
}

type PublicKey struct {
	scheme *Scheme
	Body   []byte
}

type SecretKey struct {
	scheme          *Scheme
	ActivationEpoch uint64
	NumActiveEpochs uint64
	Body            []byte
}

type publicKeyJSON struct {
	Scheme string `json:"scheme"`
	Body   string `json:"body"`
}

type secretKeyJSON struct {
	Scheme          string `json:"scheme"`
	ActivationEpoch uint64 `json:"activation_epoch"`
	NumActiveEpochs uint64 `json:"num_active_epochs"`
	Body            string `json:"body"`
}

func (k *PublicKey) CanonicalBytes() ([]byte, error) {
	return bytes.Clone(k.Body), nil
}

func (k *PublicKey) Interchange() ([]byte, error) {
	return json.MarshalIndent(publicKeyJSON{
		Scheme: k.scheme.Name(),
		Body:   hex.EncodeToString(k.Body),
	}, "", "  ")
}

func (k *SecretKey) CanonicalBytes() ([]byte, error) {
	out := make([]byte, 0, 16+len(k.Body))
	out = binary.BigEndian.AppendUint64(out, k.ActivationEpoch)
	out = binary.BigEndian.AppendUint64(out, k.NumActiveEpochs)
	out = append(out, k.Body...)
	return out, nil
}

func (k *SecretKey) Interchange() ([]byte, error) {
	return json.MarshalIndent(secretKeyJSON{
		Scheme:          k.scheme.Name(),
		ActivationEpoch: k.ActivationEpoch,
		NumActiveEpochs: k.NumActiveEpochs,
		Body:            hex.EncodeToString(k.Body),
	}, "", "  ")
}

func (s *Scheme) PublicKeyFromCanonicalBytes(raw []byte) (scheme.PublicKey, error) {
	if len(raw) != s.keySize {
		return nil, fmt.Errorf("canonical public key must be %d bytes, got %d", s.keySize, len(raw))
	}
	return &PublicKey{scheme: s, Body: bytes.Clone(raw)}, nil
}

func (s *Scheme) SecretKeyFromCanonicalBytes(raw []byte) (scheme.SecretKey, error) {
	if len(raw) != 16+s.keySize {
		return nil, fmt.Errorf("canonical secret key must be %d bytes, got %d", 16+s.keySize, len(raw))
	}
	return &SecretKey{
		scheme:          s,
		ActivationEpoch: binary.BigEndian.Uint64(raw[0:8]),
		NumActiveEpochs: binary.BigEndian.Uint64(raw[8:16]),
		Body:            bytes.Clone(raw[16:]),
	}, nil
}

func (s *Scheme) PublicKeyFromInterchange(text []byte) (scheme.PublicKey, error) {
	var parsed publicKeyJSON
	if err := json.Unmarshal(text, &parsed); err != nil {
		return nil, fmt.Errorf("parsing interchange public key: %w", err)
	}
	if parsed.Scheme != s.Name() {
		return nil, fmt.Errorf("interchange public key is for scheme %q, want %q", parsed.Scheme, s.Name())
	}
	body, err := hex.DecodeString(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("field body is not valid hex: %w", err)
	}
	if len(body) != s.keySize {
		return nil, fmt.Errorf("field body must be %d bytes, got %d", s.keySize, len(body))
	}
	return &PublicKey{scheme: s, Body: body}, nil
}

func (s *Scheme) SecretKeyFromInterchange(text []byte) (scheme.SecretKey, error) {
	var parsed secretKeyJSON
	if err := json.Unmarshal(text, &parsed); err != nil {
		return nil, fmt.Errorf("parsing interchange secret key: %w", err)
	}
	if parsed.Scheme != s.Name() {
		return nil, fmt.Errorf("interchange secret key is for scheme %q, want %q", parsed.Scheme, s.Name())
	}
	body, err := hex.DecodeString(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("field body is not valid hex: %w", err)
	}
	if len(body) != s.keySize {
		return nil, fmt.Errorf("field body must be %d bytes, got %d", s.keySize, len(body))
	}
	return &SecretKey{
		scheme:          s,
		ActivationEpoch: parsed.ActivationEpoch,
		NumActiveEpochs: parsed.NumActiveEpochs,
		Body:            body,
	}, nil
}
