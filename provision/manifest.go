//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"fmt"
	"os"
	"strings"

	"github.com/signalapp/validator-keygen/scheme"
)

// ManifestFileName is the fixed name of the manifest within the output
// directory.
const ManifestFileName = "validator-keys-manifest.yaml"

// RunMetadata is the run-level information stamped into the manifest.
type RunMetadata struct {
	// RunID ties the manifest back to the run's log output.
	RunID              string
	Scheme             scheme.Scheme
	LogNumActiveEpochs uint
}

// NumActiveEpochs returns the activation duration, 2^LogNumActiveEpochs.
func (m RunMetadata) NumActiveEpochs() uint64 {
	return uint64(1) << m.LogNumActiveEpochs
}

// WriteManifest renders the manifest document and writes it to path. Callers
// invoke it only after every key exported successfully, so a failed run
// never leaves a manifest referencing keys that do not exist.
func WriteManifest(path string, meta RunMetadata, records []ManifestRecord) error {
	if meta.LogNumActiveEpochs > 63 {
		return validationErr(noIndex, fmt.Sprintf(
			"log_num_active_epochs %d does not fit a 64-bit epoch count", meta.LogNumActiveEpochs))
	}

	var b strings.Builder
	b.WriteString("# Validator key manifest.\n")
	b.WriteString("# Secret-key files referenced below must be kept private.\n")
	if meta.RunID != "" {
		fmt.Fprintf(&b, "# Provisioning run: %s\n", meta.RunID)
	}
	fmt.Fprintf(&b, "key_scheme: %q\n", meta.Scheme.Name())
	fmt.Fprintf(&b, "hash_function: %q\n", meta.Scheme.HashFunction())
	fmt.Fprintf(&b, "encoding: %q\n", meta.Scheme.Encoding())
	fmt.Fprintf(&b, "lifetime: %d\n", meta.Scheme.Lifetime())
	fmt.Fprintf(&b, "log_num_active_epochs: %d\n", meta.LogNumActiveEpochs)
	fmt.Fprintf(&b, "num_active_epochs: %d\n", meta.NumActiveEpochs())
	fmt.Fprintf(&b, "num_validators: %d\n", len(records))

	if len(records) == 0 {
		b.WriteString("validators: []\n")
	} else {
		b.WriteString("validators:\n")
		for i, rec := range records {
			if rec.Index != nil {
				fmt.Fprintf(&b, "  - index: %d\n", *rec.Index)
				fmt.Fprintf(&b, "    pubkey_hex: %q\n", rec.PubkeyHex)
			} else {
				fmt.Fprintf(&b, "  - pubkey_hex: %q\n", rec.PubkeyHex)
			}
			fmt.Fprintf(&b, "    privkey_file: %q\n", rec.PrivkeyFile)
			// Records are blank-line separated, except after the last.
			if i != len(records)-1 {
				b.WriteString("\n")
			}
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return ioErr(noIndex, path, "writing manifest", err)
	}
	return nil
}
