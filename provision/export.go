//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalapp/validator-keygen/scheme"
)

// File extensions of the two key representations.
const (
	canonicalExt   = ".bin"
	interchangeExt = ".json"
)

// contentPrefixMin is the minimum canonical public-key length accepted by
// ContentDerived naming. Requiring 6 bytes keeps the first-3/last-3-byte
// slices from overlapping, so prefixes are unambiguous.
const contentPrefixMin = 6

// ExportFormat selects which encodings are written per key.
type ExportFormat int

const (
	// CanonicalOnly writes only the canonical binary encodings.
	CanonicalOnly ExportFormat = iota
	// CanonicalAndInterchange additionally writes the human-readable
	// interchange encodings.
	CanonicalAndInterchange
)

func (f ExportFormat) String() string {
	switch f {
	case CanonicalOnly:
		return "canonical-only"
	case CanonicalAndInterchange:
		return "canonical-and-interchange"
	}
	return fmt.Sprintf("ExportFormat(%d)", int(f))
}

// ParseExportFormat parses the command-line name of an export format.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch s {
	case "canonical-only":
		return CanonicalOnly, nil
	case "canonical-and-interchange":
		return CanonicalAndInterchange, nil
	}
	return 0, fmt.Errorf("unknown export format %q", s)
}

// NamingPolicy selects how key file-name prefixes are chosen.
type NamingPolicy int

const (
	// SequentialIndex names keys validator_<index>.
	SequentialIndex NamingPolicy = iota
	// ContentDerived names keys validator-<first3hex>-<last3hex>, taken
	// from the canonical public-key bytes.
	ContentDerived
)

func (n NamingPolicy) String() string {
	switch n {
	case SequentialIndex:
		return "sequential-index"
	case ContentDerived:
		return "content-derived"
	}
	return fmt.Sprintf("NamingPolicy(%d)", int(n))
}

// ParseNamingPolicy parses the command-line name of a naming policy.
func ParseNamingPolicy(s string) (NamingPolicy, error) {
	switch s {
	case "sequential-index":
		return SequentialIndex, nil
	case "content-derived":
		return ContentDerived, nil
	}
	return 0, fmt.Errorf("unknown naming policy %q", s)
}

// ExportConfig is the immutable export configuration of one run.
type ExportConfig struct {
	Format ExportFormat
	Naming NamingPolicy
}

// ManifestRecord is the per-key information the manifest lists.
type ManifestRecord struct {
	// Index is set only under SequentialIndex naming. ContentDerived names
	// are content-addressed and carry no numeric index.
	Index       *uint64
	PubkeyHex   string
	PrivkeyFile string
}

// Exporter writes the files of one key pair and produces its manifest
// record.
type Exporter struct {
	dir string
	cfg ExportConfig
	log Logger
}

// NewExporter returns an Exporter writing into dir, which must already
// exist. log may be nil.
func NewExporter(dir string, cfg ExportConfig, log Logger) *Exporter {
	if log == nil {
		log = nopLogger{}
	}
	return &Exporter{dir: dir, cfg: cfg, log: log}
}

// Export writes the key pair's files and returns its manifest record. The
// record's public-key hex always comes from the in-memory key's canonical
// encoding, never from reading back a just-written file.
func (e *Exporter) Export(index uint64, pub scheme.PublicKey, sec scheme.SecretKey) (ManifestRecord, error) {
	pkBytes, err := pub.CanonicalBytes()
	if err != nil {
		return ManifestRecord{}, encodingErr(int64(index), "", "canonical public-key encoding failed", err)
	}
	prefix, err := e.prefix(index, pkBytes)
	if err != nil {
		return ManifestRecord{}, err
	}
	skBytes, err := sec.CanonicalBytes()
	if err != nil {
		return ManifestRecord{}, encodingErr(int64(index), "", "canonical secret-key encoding failed", err)
	}

	if err := e.write(index, prefix+"_pk"+canonicalExt, pkBytes, 0o644); err != nil {
		return ManifestRecord{}, err
	}
	if err := e.write(index, prefix+"_sk"+canonicalExt, skBytes, 0o600); err != nil {
		return ManifestRecord{}, err
	}

	if e.cfg.Format == CanonicalAndInterchange {
		pkText, err := pub.Interchange()
		if err != nil {
			return ManifestRecord{}, encodingErr(int64(index), "", "interchange public-key encoding failed", err)
		}
		skText, err := sec.Interchange()
		if err != nil {
			return ManifestRecord{}, encodingErr(int64(index), "", "interchange secret-key encoding failed", err)
		}
		if err := e.write(index, prefix+"_pk"+interchangeExt, pkText, 0o644); err != nil {
			return ManifestRecord{}, err
		}
		if err := e.write(index, prefix+"_sk"+interchangeExt, skText, 0o600); err != nil {
			return ManifestRecord{}, err
		}
	}

	rec := ManifestRecord{
		PubkeyHex:   "0x" + hex.EncodeToString(pkBytes),
		PrivkeyFile: prefix + "_sk" + canonicalExt,
	}
	if e.cfg.Naming == SequentialIndex {
		idx := index
		rec.Index = &idx
	}
	return rec, nil
}

// prefix computes the shared file-name prefix of one key pair. It runs
// before any file is written so a naming failure leaves no partial pair.
func (e *Exporter) prefix(index uint64, pkBytes []byte) (string, error) {
	if e.cfg.Naming == ContentDerived {
		if len(pkBytes) < contentPrefixMin {
			return "", validationErr(int64(index), fmt.Sprintf(
				"content-derived naming requires a canonical public key of at least %d bytes, got %d",
				contentPrefixMin, len(pkBytes)))
		}
		first := hex.EncodeToString(pkBytes[:3])
		last := hex.EncodeToString(pkBytes[len(pkBytes)-3:])
		return fmt.Sprintf("validator-%s-%s", first, last), nil
	}
	return fmt.Sprintf("validator_%d", index), nil
}

func (e *Exporter) write(index uint64, name string, data []byte, mode os.FileMode) error {
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, mode); err != nil {
		return ioErr(int64(index), path, "writing key file", err)
	}
	e.log.Infof("wrote %s (%d bytes)", path, len(data))
	return nil
}
