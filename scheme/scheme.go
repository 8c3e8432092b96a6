//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package scheme defines the interface to an epoch-based signature scheme's
// key material. Implementations live in subpackages; the provisioning
// pipeline only ever talks to these interfaces.
package scheme

import (
	"errors"
	"fmt"
	"io"
)

// ErrInvalidWindow reports an activation window that is empty or extends past
// the end of the scheme's lifetime.
var ErrInvalidWindow = errors.New("invalid activation window")

// Scheme describes one parameter set of an epoch-based signature scheme and
// produces key pairs bound to a contiguous window of its epochs.
type Scheme interface {
	// Name returns the identifier published for this parameter set, e.g.
	// "slh-dsa-sha2-128s".
	Name() string
	// HashFunction returns the identifier of the scheme's internal hash.
	HashFunction() string
	// Encoding returns the identifier of the canonical byte encoding.
	Encoding() string
	// Lifetime returns the total number of epochs a key pair of this scheme
	// can ever cover.
	Lifetime() uint64
	// SeedSize returns the number of bytes KeyGen draws from its randomness
	// source.
	SeedSize() int

	// KeyGen derives a fresh key pair valid for the epochs
	// [activationEpoch, activationEpoch+numActiveEpochs). It fails with
	// ErrInvalidWindow if the window is empty or exceeds Lifetime, and
	// otherwise only if reading from rng fails.
	KeyGen(rng io.Reader, activationEpoch, numActiveEpochs uint64) (PublicKey, SecretKey, error)

	// PublicKeyFromCanonicalBytes is the inverse of PublicKey.CanonicalBytes.
	PublicKeyFromCanonicalBytes(raw []byte) (PublicKey, error)
	// SecretKeyFromCanonicalBytes is the inverse of SecretKey.CanonicalBytes.
	SecretKeyFromCanonicalBytes(raw []byte) (SecretKey, error)
	// PublicKeyFromInterchange is the inverse of PublicKey.Interchange.
	PublicKeyFromInterchange(text []byte) (PublicKey, error)
	// SecretKeyFromInterchange is the inverse of SecretKey.Interchange.
	SecretKeyFromInterchange(text []byte) (SecretKey, error)
}

// PublicKey is the public half of a generated key pair.
type PublicKey interface {
	// CanonicalBytes returns the scheme's fixed binary encoding of the key.
	// This is the encoding verifiers and manifests use.
	CanonicalBytes() ([]byte, error)
	// Interchange returns a human-readable text encoding of the key. It
	// round-trips through the scheme's PublicKeyFromInterchange to an equal
	// key but not to the same bytes as CanonicalBytes.
	Interchange() ([]byte, error)
}

// SecretKey is the secret half of a generated key pair. The activation
// window is part of the key's identity and travels with both encodings.
type SecretKey interface {
	CanonicalBytes() ([]byte, error)
	Interchange() ([]byte, error)
}

// CheckWindow verifies that [activationEpoch, activationEpoch+numActiveEpochs)
// is a non-empty range of epochs that fits within lifetime.
func CheckWindow(activationEpoch, numActiveEpochs, lifetime uint64) error {
	if numActiveEpochs == 0 {
		return fmt.Errorf("%w: key must be active for at least one epoch", ErrInvalidWindow)
	}
	if activationEpoch > lifetime || numActiveEpochs > lifetime-activationEpoch {
		return fmt.Errorf("%w: %d epochs starting at %d exceed scheme lifetime %d",
			ErrInvalidWindow, numActiveEpochs, activationEpoch, lifetime)
	}
	return nil
}
