//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package entropy provides the randomness sources validator key generation
// draws from: the operating system CSPRNG for one-off runs, and a
// mnemonic-derived deterministic source for fleets that must be recoverable.
package entropy

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Source hands out one randomness reader per key index.
type Source interface {
	// KeyReader returns the reader that key generation for the given index
	// draws from. Readers for distinct indexes are independent, so parallel
	// workers can generate different indexes concurrently.
	KeyReader(index uint64) io.Reader
}

// System returns a Source backed by the operating system's CSPRNG. Every
// index shares the same underlying reader; reads are never correlated.
func System() Source { return systemSource{} }

type systemSource struct{}

func (systemSource) KeyReader(uint64) io.Reader { return rand.Reader }

type mnemonicSource struct {
	seed []byte
}

// FromMnemonic returns a deterministic Source derived from a BIP-39 mnemonic
// and an optional passphrase. The same mnemonic, passphrase and index always
// yield the same key material, so a lost fleet can be re-provisioned.
// Inputs are NFKD-normalized before hashing so that visually identical
// phrases entered on different platforms derive the same seed.
func FromMnemonic(mnemonic, passphrase string) (Source, error) {
	phrase := norm.NFKD.String(strings.TrimSpace(mnemonic))
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}
	return &mnemonicSource{seed: bip39.NewSeed(phrase, norm.NFKD.String(passphrase))}, nil
}

// KeyReader expands the run seed under an index-scoped info string. Each
// index gets its own HKDF stream, so no two keys observe overlapping output.
func (s *mnemonicSource) KeyReader(index uint64) io.Reader {
	info := fmt.Sprintf("validator-keygen/key/%d/v1", index)
	return hkdf.New(sha256.New, s.seed, nil, []byte(info))
}

// NewMnemonic mints a fresh 24-word mnemonic suitable for FromMnemonic.
func NewMnemonic() (string, error) {
	raw, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("gathering mnemonic entropy: %w", err)
	}
	return bip39.NewMnemonic(raw)
}
