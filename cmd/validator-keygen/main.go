//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Command validator-keygen provisions batches of validator key pairs for an
// epoch-based signature scheme and writes them, alongside a discovery
// manifest, to a directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/signalapp/validator-keygen/cmd/internal/config"
	"github.com/signalapp/validator-keygen/cmd/internal/util"
	"github.com/signalapp/validator-keygen/entropy"
	"github.com/signalapp/validator-keygen/provision"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()

	configFile         = flag.String("config", "", "Location of a run configuration file. When set, the other generation flags are ignored.")
	numValidators      = flag.Uint64("num-validators", 0, "Number of validator key pairs to generate.")
	logNumActiveEpochs = flag.Uint("log-num-active-epochs", 0, "Base-2 logarithm of the number of epochs each key stays active.")
	outputDir          = flag.String("output-dir", "", "Directory the key files and the manifest are written to.")
	schemeName         = flag.String("scheme", "", "Signature scheme parameter set. Defaults to slh-dsa-sha2-128s.")
	exportFormat       = flag.String("format", "", "Export format: canonical-only or canonical-and-interchange.")
	namingPolicy       = flag.String("naming", "", "File naming policy: sequential-index or content-derived.")
	writeManifest      = flag.Bool("manifest", true, "Write the validator manifest after all keys succeed.")
	workers            = flag.Int("workers", 1, "Number of parallel key-generation workers.")
	mnemonic           = flag.String("mnemonic", "", "BIP-39 mnemonic for deterministic provisioning. Empty draws from the system CSPRNG.")
	mnemonicPassphrase = flag.String("mnemonic-passphrase", "", "Optional passphrase combined with -mnemonic.")
	newMnemonic        = flag.Bool("new-mnemonic", false, "Mint a fresh 24-word mnemonic, print it to stdout and exit.")
	logOutput          = flag.String("log-output", "", "Also write logs to this file, with rotation.")
)

func main() {
	flag.Parse()
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	if *newMnemonic {
		// The mnemonic goes to stdout so it can be captured without log
		// decoration. Anyone holding it can re-derive the keys.
		phrase, err := entropy.NewMnemonic()
		if err != nil {
			logger := zerolog.New(consoleWriter).With().Timestamp().Logger()
			logger.Fatal().Msgf("failed to mint mnemonic: %v", err)
		}
		fmt.Println(phrase)
		return
	}

	// Resolve the run options from the config file or from flags.
	var run *config.Run
	var err error
	if *configFile != "" {
		run, err = config.Read(*configFile)
		if err != nil {
			logger := zerolog.New(consoleWriter).With().Timestamp().Logger()
			logger.Fatal().Msgf("failed to parse config file: %v", err)
		}
	} else {
		run, err = config.FromFlags(config.Flags{
			NumValidators:      *numValidators,
			LogNumActiveEpochs: *logNumActiveEpochs,
			OutputDir:          *outputDir,
			Scheme:             *schemeName,
			Format:             *exportFormat,
			Naming:             *namingPolicy,
			Manifest:           *writeManifest,
			Workers:            *workers,
			Mnemonic:           *mnemonic,
			MnemonicPassphrase: *mnemonicPassphrase,
			LogOutputFile:      *logOutput,
		})
		if err != nil {
			logger := zerolog.New(consoleWriter).With().Timestamp().Logger()
			logger.Fatal().Msgf("invalid run options: %v", err)
		}
	}

	var zeroLogLogger zerolog.Logger
	var logWriter io.Writer
	if len(run.LogOutputFile) > 0 {
		logWriter = zerolog.MultiLevelWriter(
			consoleWriter,
			&lumberjack.Logger{
				Filename:   run.LogOutputFile,
				MaxBackups: 10,
				Compress:   true,
			},
		)
		zeroLogLogger = zerolog.New(logWriter).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	} else {
		logWriter = consoleWriter
		zeroLogLogger = zerolog.New(logWriter).With().Caller().Timestamp().Logger()
	}
	util.SetLoggerInstance(&zeroLogLogger)

	runID := uuid.New().String()
	util.Log().Infof("validator-keygen %s (%s) starting run %s", Version, GoVersion, runID)
	util.Log().Infof("scheme %s, %d validators, %d active epochs, format %s, naming %s",
		run.Scheme, run.NumValidators, run.NumActiveEpochs(), run.Format, run.Naming)

	source, err := run.Source()
	if err != nil {
		util.Log().Fatalf("failed to set up entropy source: %v", err)
	}
	if run.Mnemonic != "" {
		util.Log().Infof("provisioning deterministically from mnemonic")
	}

	if err := os.MkdirAll(run.OutputDir.String(), 0o700); err != nil {
		util.Log().Fatalf("failed to create output directory: %v", err)
	}

	exporter := provision.NewExporter(run.OutputDir.String(), run.ExportConfig(), util.Log())
	provisioner, err := provision.NewProvisioner(run.SchemeInstance(), source, exporter, run.NumActiveEpochs(), util.Log())
	if err != nil {
		util.Log().Fatalf("failed to set up provisioner: %v", err)
	}

	start := time.Now()
	records, err := provisioner.ProvisionParallel(context.Background(), run.NumValidators, run.Workers)
	if err != nil {
		util.Log().Fatalf("provisioning failed: %v", err)
	}

	if run.WriteManifest() {
		meta := provision.RunMetadata{
			RunID:              runID,
			Scheme:             run.SchemeInstance(),
			LogNumActiveEpochs: run.LogNumActiveEpochs,
		}
		path := filepath.Join(run.OutputDir.String(), provision.ManifestFileName)
		if err := provision.WriteManifest(path, meta, records); err != nil {
			util.Log().Fatalf("failed to write manifest: %v", err)
		}
		util.Log().Infof("wrote manifest %s", path)
	}

	util.Log().Infof("provisioned %d validator keys to %s in %s",
		len(records), run.OutputDir, time.Since(start).Round(time.Millisecond))
}
