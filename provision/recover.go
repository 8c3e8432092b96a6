//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"encoding/hex"
	"os"

	"github.com/signalapp/validator-keygen/scheme"
)

// CanonicalHexFromInterchange recovers the canonical "0x…" public-key hex
// from a persisted interchange-text file. The text is deserialized into the
// typed key and re-encoded canonically. Hex-encoding the raw file bytes
// would be wrong: the interchange form preserves the key's internal field
// representation, not the canonical wire form.
func CanonicalHexFromInterchange(s scheme.Scheme, path string) (string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return "", ioErr(noIndex, path, "reading interchange public key", err)
	}
	pub, err := s.PublicKeyFromInterchange(text)
	if err != nil {
		return "", encodingErr(noIndex, path, "decoding interchange public key", err)
	}
	return canonicalHex(pub)
}

// CanonicalHexFromFile recovers the canonical "0x…" public-key hex from a
// persisted canonical binary file. Decoding into the typed key first
// rejects truncated or foreign files instead of hex-encoding them blindly.
func CanonicalHexFromFile(s scheme.Scheme, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", ioErr(noIndex, path, "reading canonical public key", err)
	}
	pub, err := s.PublicKeyFromCanonicalBytes(raw)
	if err != nil {
		return "", encodingErr(noIndex, path, "decoding canonical public key", err)
	}
	return canonicalHex(pub)
}

func canonicalHex(pub scheme.PublicKey) (string, error) {
	out, err := pub.CanonicalBytes()
	if err != nil {
		return "", encodingErr(noIndex, "", "canonical public-key encoding failed", err)
	}
	return "0x" + hex.EncodeToString(out), nil
}
