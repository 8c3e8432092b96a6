//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/signalapp/validator-keygen/entropy"
	"github.com/signalapp/validator-keygen/provision"
	"github.com/signalapp/validator-keygen/scheme/slhdsa"
)

// envstr is a string in the YAML config file that expands environment variables
// when parsed.
type envstr string

func (es *envstr) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*es = envstr(os.ExpandEnv(s))
	return nil
}

func (es envstr) String() string { return string(es) }

// Run specifies the file format of run configuration files. The flag path of
// cmd/validator-keygen builds a Run directly and calls Finish on it, so both
// invocation styles share the same validation.
type Run struct {
	NumValidators      uint64 `yaml:"num-validators"`
	LogNumActiveEpochs uint   `yaml:"log-num-active-epochs"`
	OutputDir          envstr `yaml:"output-dir"`

	Scheme string `yaml:"scheme"`
	Format string `yaml:"format"`
	Naming string `yaml:"naming"`
	// Manifest defaults to true when omitted.
	Manifest *bool `yaml:"manifest"`
	Workers  int   `yaml:"workers"`

	// Mnemonic switches the run to deterministic provisioning. Secrets are
	// usually supplied via environment expansion, e.g. ${KEYGEN_MNEMONIC}.
	Mnemonic           envstr `yaml:"mnemonic"`
	MnemonicPassphrase envstr `yaml:"mnemonic-passphrase"`

	LogOutputFile string `yaml:"log-output"`

	format provision.ExportFormat
	naming provision.NamingPolicy
	scheme *slhdsa.Scheme
}

// Flags carries the flag values of a direct, config-file-less invocation.
type Flags struct {
	NumValidators      uint64
	LogNumActiveEpochs uint
	OutputDir          string
	Scheme             string
	Format             string
	Naming             string
	Manifest           bool
	Workers            int
	Mnemonic           string
	MnemonicPassphrase string
	LogOutputFile      string
}

// FromFlags builds and validates a Run from command-line flag values.
func FromFlags(f Flags) (*Run, error) {
	manifest := f.Manifest
	run := &Run{
		NumValidators:      f.NumValidators,
		LogNumActiveEpochs: f.LogNumActiveEpochs,
		OutputDir:          envstr(f.OutputDir),
		Scheme:             f.Scheme,
		Format:             f.Format,
		Naming:             f.Naming,
		Manifest:           &manifest,
		Workers:            f.Workers,
		Mnemonic:           envstr(f.Mnemonic),
		MnemonicPassphrase: envstr(f.MnemonicPassphrase),
		LogOutputFile:      f.LogOutputFile,
	}
	if err := run.Finish(); err != nil {
		return nil, err
	}
	return run, nil
}

// Read parses a run configuration file and validates it.
func Read(filename string) (*Run, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var parsed Run
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	if err := parsed.Finish(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Finish applies defaults, checks that all field values are usable and
// resolves the parsed forms returned by the accessor methods.
func (r *Run) Finish() error {
	if r.OutputDir == "" {
		return fmt.Errorf("field not provided: output-dir")
	}
	if r.LogNumActiveEpochs > 63 {
		return fmt.Errorf("log-num-active-epochs must be at most 63, got %d", r.LogNumActiveEpochs)
	}
	if r.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", r.Workers)
	}
	if r.Mnemonic == "" && r.MnemonicPassphrase != "" {
		return fmt.Errorf("mnemonic-passphrase provided without mnemonic")
	}

	if r.Scheme == "" {
		r.Scheme = slhdsa.Default().Name()
	}
	if r.Format == "" {
		r.Format = provision.CanonicalOnly.String()
	}
	if r.Naming == "" {
		r.Naming = provision.SequentialIndex.String()
	}
	if r.Workers == 0 {
		r.Workers = 1
	}

	var err error
	if r.scheme, err = slhdsa.ByName(r.Scheme); err != nil {
		return err
	}
	if r.format, err = provision.ParseExportFormat(r.Format); err != nil {
		return err
	}
	if r.naming, err = provision.ParseNamingPolicy(r.Naming); err != nil {
		return err
	}
	return nil
}

// SchemeInstance returns the parameter set the run generates keys for.
func (r *Run) SchemeInstance() *slhdsa.Scheme { return r.scheme }

// ExportConfig returns the exporter configuration of the run.
func (r *Run) ExportConfig() provision.ExportConfig {
	return provision.ExportConfig{Format: r.format, Naming: r.naming}
}

// WriteManifest reports whether the run should produce a manifest.
func (r *Run) WriteManifest() bool { return r.Manifest == nil || *r.Manifest }

// NumActiveEpochs returns the activation duration, 2^LogNumActiveEpochs.
func (r *Run) NumActiveEpochs() uint64 { return uint64(1) << r.LogNumActiveEpochs }

// Source returns the entropy source the run draws key material from.
func (r *Run) Source() (entropy.Source, error) {
	if r.Mnemonic != "" {
		return entropy.FromMnemonic(r.Mnemonic.String(), r.MnemonicPassphrase.String())
	}
	return entropy.System(), nil
}
