//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalapp/validator-keygen/scheme/schemetest"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

// testSource hands every index a reader seeded with the index, so runs are
// reproducible and distinct indexes get distinct key material.
type testSource struct{}

func (testSource) KeyReader(index uint64) io.Reader {
	return &deterministicReader{b: byte(index)}
}

func newTestProvisioner(t *testing.T, dir string, cfg ExportConfig, keySize int, numActiveEpochs uint64) *Provisioner {
	t.Helper()
	exporter := NewExporter(dir, cfg, nil)
	p, err := NewProvisioner(schemetest.New(keySize), testSource{}, exporter, numActiveEpochs, nil)
	if err != nil {
		t.Fatalf("NewProvisioner: %v", err)
	}
	return p
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestProvisionGeneratesAllKeys(t *testing.T) {
	dir := t.TempDir()
	p := newTestProvisioner(t, dir, ExportConfig{Format: CanonicalOnly, Naming: SequentialIndex}, 8, 1<<4)

	records, err := p.Provision(context.Background(), 3)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	assert.Len(t, records, 3)
	for i, rec := range records {
		if rec.Index == nil || *rec.Index != uint64(i) {
			t.Fatalf("record %d has wrong index %v", i, rec.Index)
		}
		assert.Equal(t, fmt.Sprintf("validator_%d_sk.bin", i), rec.PrivkeyFile)
	}

	// one pk and one sk file per key, no manifest
	assert.Len(t, listDir(t, dir), 6)
}

func TestProvisionZeroCount(t *testing.T) {
	dir := t.TempDir()
	p := newTestProvisioner(t, dir, ExportConfig{}, 8, 1)

	records, err := p.Provision(context.Background(), 0)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	assert.Empty(t, records)
	assert.Empty(t, listDir(t, dir))
}

func TestProvisionRejectsBadActivationDuration(t *testing.T) {
	exporter := NewExporter(t.TempDir(), ExportConfig{}, nil)
	s := schemetest.New(8)

	_, err := NewProvisioner(s, testSource{}, exporter, 0, nil)
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for zero activation duration, got %v", err)
	}
	_, err = NewProvisioner(s, testSource{}, exporter, s.Lifetime()+1, nil)
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for oversized activation duration, got %v", err)
	}
}

func TestProvisionAbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	// 4-byte public keys are too short for content-derived naming, so the
	// very first export fails.
	p := newTestProvisioner(t, dir, ExportConfig{Naming: ContentDerived}, 4, 1)

	_, err := p.Provision(context.Background(), 3)
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	assert.Empty(t, listDir(t, dir))
}

func TestProvisionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestProvisioner(t, t.TempDir(), ExportConfig{}, 8, 1)
	if _, err := p.Provision(ctx, 3); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}

func TestProvisionParallelMatchesSequential(t *testing.T) {
	cfg := ExportConfig{Format: CanonicalAndInterchange, Naming: SequentialIndex}

	seqDir := t.TempDir()
	seq := newTestProvisioner(t, seqDir, cfg, 8, 1<<4)
	seqRecords, err := seq.Provision(context.Background(), 5)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	parDir := t.TempDir()
	par := newTestProvisioner(t, parDir, cfg, 8, 1<<4)
	parRecords, err := par.ProvisionParallel(context.Background(), 5, 3)
	if err != nil {
		t.Fatalf("ProvisionParallel: %v", err)
	}

	assert.Equal(t, seqRecords, parRecords)
	seqNames := listDir(t, seqDir)
	assert.Equal(t, seqNames, listDir(t, parDir))
	for _, name := range seqNames {
		seqBytes, err := os.ReadFile(filepath.Join(seqDir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		parBytes, err := os.ReadFile(filepath.Join(parDir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		assert.Equal(t, seqBytes, parBytes, "file %s differs between sequential and parallel runs", name)
	}
}

func TestProvisionParallelSingleWorkerFallsBack(t *testing.T) {
	dir := t.TempDir()
	p := newTestProvisioner(t, dir, ExportConfig{}, 8, 1)

	records, err := p.ProvisionParallel(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("ProvisionParallel: %v", err)
	}
	assert.Len(t, records, 2)
}
