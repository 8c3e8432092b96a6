//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"

	"github.com/signalapp/validator-keygen/scheme/schemetest"
)

// parsedManifest mirrors the manifest document for round-trip checks. The
// renderer writes YAML by hand; parsing it back proves it stays well-formed.
type parsedManifest struct {
	KeyScheme          string `yaml:"key_scheme"`
	HashFunction       string `yaml:"hash_function"`
	Encoding           string `yaml:"encoding"`
	Lifetime           uint64 `yaml:"lifetime"`
	LogNumActiveEpochs uint   `yaml:"log_num_active_epochs"`
	NumActiveEpochs    uint64 `yaml:"num_active_epochs"`
	NumValidators      int    `yaml:"num_validators"`
	Validators         []struct {
		Index       *uint64 `yaml:"index"`
		PubkeyHex   string  `yaml:"pubkey_hex"`
		PrivkeyFile string  `yaml:"privkey_file"`
	} `yaml:"validators"`
}

func writeTestManifest(t *testing.T, meta RunMetadata, records []ManifestRecord) (string, parsedManifest) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ManifestFileName)
	if err := WriteManifest(path, meta, records); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	var parsed parsedManifest
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("manifest is not valid YAML: %v\n%s", err, raw)
	}
	return string(raw), parsed
}

func index(i uint64) *uint64 { return &i }

func TestWriteManifestSequential(t *testing.T) {
	meta := RunMetadata{
		RunID:              "e4c0ffee-0000-4000-8000-000000000000",
		Scheme:             schemetest.New(8),
		LogNumActiveEpochs: 4,
	}
	records := []ManifestRecord{
		{Index: index(0), PubkeyHex: "0x0001020304050607", PrivkeyFile: "validator_0_sk.bin"},
		{Index: index(1), PubkeyHex: "0x08090a0b0c0d0e0f", PrivkeyFile: "validator_1_sk.bin"},
	}

	raw, parsed := writeTestManifest(t, meta, records)

	assert.Equal(t, "test-scheme", parsed.KeyScheme)
	assert.Equal(t, "test-hash", parsed.HashFunction)
	assert.Equal(t, "test-raw", parsed.Encoding)
	assert.Equal(t, uint64(1)<<16, parsed.Lifetime)
	assert.Equal(t, uint(4), parsed.LogNumActiveEpochs)
	assert.Equal(t, uint64(16), parsed.NumActiveEpochs)
	assert.Equal(t, 2, parsed.NumValidators)

	assert.Len(t, parsed.Validators, 2)
	for i, v := range parsed.Validators {
		if v.Index == nil || *v.Index != uint64(i) {
			t.Fatalf("validator block %d has wrong index %v", i, v.Index)
		}
		assert.Equal(t, records[i].PubkeyHex, v.PubkeyHex)
		assert.Equal(t, records[i].PrivkeyFile, v.PrivkeyFile)
	}

	// header comments carry the run ID; blocks are blank-line separated
	// except after the last
	assert.True(t, strings.HasPrefix(raw, "#"))
	assert.Contains(t, raw, meta.RunID)
	assert.Equal(t, 1, strings.Count(raw, "\n\n"))
	assert.False(t, strings.HasSuffix(raw, "\n\n"))
}

func TestWriteManifestContentDerived(t *testing.T) {
	meta := RunMetadata{Scheme: schemetest.New(8), LogNumActiveEpochs: 0}
	records := []ManifestRecord{
		{PubkeyHex: "0x0001020304050607", PrivkeyFile: "validator-000102-050607_sk.bin"},
	}

	_, parsed := writeTestManifest(t, meta, records)

	// log_num_active_epochs = 0 means exactly one active epoch
	assert.Equal(t, uint64(1), parsed.NumActiveEpochs)
	assert.Len(t, parsed.Validators, 1)
	assert.Nil(t, parsed.Validators[0].Index)
	assert.Equal(t, records[0].PrivkeyFile, parsed.Validators[0].PrivkeyFile)
}

func TestWriteManifestEmpty(t *testing.T) {
	meta := RunMetadata{Scheme: schemetest.New(8), LogNumActiveEpochs: 1}

	_, parsed := writeTestManifest(t, meta, nil)
	assert.Equal(t, 0, parsed.NumValidators)
	assert.Empty(t, parsed.Validators)
}

func TestWriteManifestRejectsOversizedLog(t *testing.T) {
	meta := RunMetadata{Scheme: schemetest.New(8), LogNumActiveEpochs: 64}
	path := filepath.Join(t.TempDir(), ManifestFileName)

	err := WriteManifest(path, meta, nil)
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("manifest file written despite validation failure")
	}
}

func TestWriteManifestIOFailure(t *testing.T) {
	meta := RunMetadata{Scheme: schemetest.New(8), LogNumActiveEpochs: 1}
	path := filepath.Join(t.TempDir(), "missing", ManifestFileName)

	err := WriteManifest(path, meta, nil)
	if !IsKind(err, KindIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestRunMetadataNumActiveEpochs(t *testing.T) {
	for _, log := range []uint{0, 1, 10, 63} {
		meta := RunMetadata{LogNumActiveEpochs: log}
		assert.Equal(t, uint64(1)<<log, meta.NumActiveEpochs())
	}
}
