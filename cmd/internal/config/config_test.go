//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalapp/validator-keygen/provision"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestReadExpandsEnvironment(t *testing.T) {
	t.Setenv("KEYGEN_OUT", "/var/keys")
	t.Setenv("KEYGEN_MNEMONIC", "legal winner thank year wave sausage worth useful legal winner thank yellow")

	run, err := Read(writeConfig(t, `
num-validators: 5
log-num-active-epochs: 8
output-dir: ${KEYGEN_OUT}/fleet
scheme: slh-dsa-shake-128s
format: canonical-and-interchange
naming: content-derived
manifest: false
workers: 4
mnemonic: ${KEYGEN_MNEMONIC}
`))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	assert.Equal(t, uint64(5), run.NumValidators)
	assert.Equal(t, "/var/keys/fleet", run.OutputDir.String())
	assert.Equal(t, "slh-dsa-shake-128s", run.SchemeInstance().Name())
	assert.Equal(t, provision.ExportConfig{
		Format: provision.CanonicalAndInterchange,
		Naming: provision.ContentDerived,
	}, run.ExportConfig())
	assert.False(t, run.WriteManifest())
	assert.Equal(t, 4, run.Workers)
	assert.Equal(t, uint64(256), run.NumActiveEpochs())

	src, err := run.Source()
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	assert.NotNil(t, src)
}

func TestReadDefaults(t *testing.T) {
	run, err := Read(writeConfig(t, `
num-validators: 1
output-dir: /tmp/keys
`))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	assert.Equal(t, "slh-dsa-sha2-128s", run.SchemeInstance().Name())
	assert.Equal(t, provision.ExportConfig{
		Format: provision.CanonicalOnly,
		Naming: provision.SequentialIndex,
	}, run.ExportConfig())
	// manifest defaults to on, workers to one, activation to a single epoch
	assert.True(t, run.WriteManifest())
	assert.Equal(t, 1, run.Workers)
	assert.Equal(t, uint64(1), run.NumActiveEpochs())
}

var testInvalidConfigParameters = []struct {
	name     string
	contents string
}{
	{"missing output dir", `num-validators: 1`},
	{"oversized log", "output-dir: /tmp/keys\nlog-num-active-epochs: 64"},
	{"negative workers", "output-dir: /tmp/keys\nworkers: -1"},
	{"unknown scheme", "output-dir: /tmp/keys\nscheme: rsa-4096"},
	{"unknown format", "output-dir: /tmp/keys\nformat: pem"},
	{"unknown naming", "output-dir: /tmp/keys\nnaming: random"},
	{"passphrase without mnemonic", "output-dir: /tmp/keys\nmnemonic-passphrase: hunter2"},
	{"not yaml", `{{{`},
}

func TestReadInvalid(t *testing.T) {
	for _, p := range testInvalidConfigParameters {
		if _, err := Read(writeConfig(t, p.contents)); err == nil {
			t.Fatalf("%s: expected error", p.name)
		}
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestFromFlags(t *testing.T) {
	run, err := FromFlags(Flags{
		NumValidators:      2,
		LogNumActiveEpochs: 3,
		OutputDir:          "/tmp/keys",
		Manifest:           true,
		Workers:            2,
	})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	assert.Equal(t, uint64(8), run.NumActiveEpochs())
	assert.True(t, run.WriteManifest())
	assert.Equal(t, "slh-dsa-sha2-128s", run.SchemeInstance().Name())

	if _, err := FromFlags(Flags{NumValidators: 1}); err == nil {
		t.Fatalf("expected error for missing output dir")
	}
}
