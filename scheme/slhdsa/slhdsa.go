//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package slhdsa implements the scheme interface on top of the SLH-DSA
// signature scheme (FIPS 205). Generated keys are bound to an activation
// window of epochs which travels with the secret key in both encodings.
package slhdsa

import (
	"fmt"
	"io"

	circl "github.com/cloudflare/circl/sign/slhdsa"

	"github.com/signalapp/validator-keygen/scheme"
)

// Lifetime is the total number of epochs every parameter set covers.
const Lifetime = uint64(1) << 32

// windowHeaderSize is the length of the activation-window header that
// prefixes the canonical secret-key encoding: two big-endian uint64s.
const windowHeaderSize = 16

type paramSet struct {
	name string
	id   circl.ID
	// n is the security parameter in bytes. Public keys are 2n bytes,
	// private keys 4n.
	n    int
	hash string
}

var paramSets = []paramSet{
	{name: "slh-dsa-sha2-128s", id: circl.SHA2_128s, n: 16, hash: "sha2-256"},
	{name: "slh-dsa-shake-128s", id: circl.SHAKE_128s, n: 16, hash: "shake-256"},
	{name: "slh-dsa-sha2-128f", id: circl.SHA2_128f, n: 16, hash: "sha2-256"},
	{name: "slh-dsa-sha2-192s", id: circl.SHA2_192s, n: 24, hash: "sha2-256"},
	{name: "slh-dsa-sha2-256s", id: circl.SHA2_256s, n: 32, hash: "sha2-256"},
}

// Scheme is one SLH-DSA parameter set. It implements scheme.Scheme.
type Scheme struct {
	p paramSet
}

// ByName returns the parameter set with the given name.
func ByName(name string) (*Scheme, error) {
	for _, p := range paramSets {
		if p.name == name {
			return &Scheme{p: p}, nil
		}
	}
	return nil, fmt.Errorf("unknown scheme %q, supported: %v", name, Names())
}

// Default returns the parameter set used when none is requested explicitly.
func Default() *Scheme { return &Scheme{p: paramSets[0]} }

// Names returns the names of all supported parameter sets.
func Names() []string {
	out := make([]string, len(paramSets))
	for i, p := range paramSets {
		out[i] = p.name
	}
	return out
}

func (s *Scheme) Name() string         { return s.p.name }
func (s *Scheme) HashFunction() string { return s.p.hash }
func (s *Scheme) Encoding() string     { return "big-endian-raw" }
func (s *Scheme) Lifetime() uint64     { return Lifetime }

// SeedSize returns the number of random bytes key generation consumes: the
// three n-byte seeds of an SLH-DSA private key.
func (s *Scheme) SeedSize() int { return 3 * s.p.n }

// KeyGen derives a fresh key pair from rng, valid for the epochs
// [activationEpoch, activationEpoch+numActiveEpochs).
func (s *Scheme) KeyGen(rng io.Reader, activationEpoch, numActiveEpochs uint64) (scheme.PublicKey, scheme.SecretKey, error) {
	if err := scheme.CheckWindow(activationEpoch, numActiveEpochs, Lifetime); err != nil {
		return nil, nil, err
	}

	pk, sk, err := circl.GenerateKey(rng, s.p.id)
	if err != nil {
		return nil, nil, fmt.Errorf("slh-dsa key generation: %w", err)
	}
	pkRaw, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encoding slh-dsa public key: %w", err)
	}
	skRaw, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encoding slh-dsa private key: %w", err)
	}

	n := s.p.n
	if len(pkRaw) != 2*n || len(skRaw) != 4*n {
		return nil, nil, fmt.Errorf("unexpected slh-dsa key sizes for %s: pk=%d sk=%d", s.p.name, len(pkRaw), len(skRaw))
	}
	pub := &PublicKey{
		scheme: s,
		PKSeed: pkRaw[:n],
		PKRoot: pkRaw[n:],
	}
	sec := &SecretKey{
		scheme:          s,
		ActivationEpoch: activationEpoch,
		NumActiveEpochs: numActiveEpochs,
		SKSeed:          skRaw[:n],
		SKPrf:           skRaw[n : 2*n],
		PKSeed:          skRaw[2*n : 3*n],
		PKRoot:          skRaw[3*n:],
	}
	return pub, sec, nil
}
