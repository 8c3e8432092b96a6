//
// Copyright 2025 Signal Messenger, LLC
// SPDX-License-Identifier: AGPL-3.0-only
//

// Package provision implements the validator key-provisioning pipeline: a
// Provisioner that generates key pairs in index order, an Exporter that
// writes each pair's files under a naming policy, and a manifest writer that
// records the run for discovery.
package provision

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/signalapp/validator-keygen/entropy"
	"github.com/signalapp/validator-keygen/scheme"
)

// Logger is the subset of logging provisioning reports progress through.
type Logger interface {
	Infof(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}

// activationStartEpoch is the epoch every provisioned key becomes active
// at. Keys are provisioned for the start of a validator's life.
const activationStartEpoch = uint64(0)

// Provisioner drives the generation loop: one key pair per index, exported
// as it is produced.
type Provisioner struct {
	scheme          scheme.Scheme
	source          entropy.Source
	exporter        *Exporter
	numActiveEpochs uint64
	log             Logger
}

// NewProvisioner validates the activation duration against the scheme's
// lifetime and returns a Provisioner. log may be nil.
func NewProvisioner(s scheme.Scheme, src entropy.Source, exporter *Exporter, numActiveEpochs uint64, log Logger) (*Provisioner, error) {
	if err := scheme.CheckWindow(activationStartEpoch, numActiveEpochs, s.Lifetime()); err != nil {
		return nil, &Error{Kind: KindValidation, Index: noIndex, Msg: "invalid activation duration", Cause: err}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Provisioner{scheme: s, source: src, exporter: exporter, numActiveEpochs: numActiveEpochs, log: log}, nil
}

// Provision generates count key pairs in ascending index order, exporting
// each one as it is produced. The first failure aborts the run; files
// already written stay on disk, and no manifest exists yet at that point.
func (p *Provisioner) Provision(ctx context.Context, count uint64) ([]ManifestRecord, error) {
	records := make([]ManifestRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pub, sec, err := p.scheme.KeyGen(p.source.KeyReader(i), activationStartEpoch, p.numActiveEpochs)
		if err != nil {
			return nil, keygenErr(i, err)
		}
		p.log.Infof("generated key %d of %d", i+1, count)
		rec, err := p.exporter.Export(i, pub, sec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ProvisionParallel generates keys across workers goroutines, then exports
// them in index order. Each index draws from its own randomness reader, so
// workers never share entropy, and file contents, names and manifest records
// match the sequential path exactly.
func (p *Provisioner) ProvisionParallel(ctx context.Context, count uint64, workers int) ([]ManifestRecord, error) {
	if workers <= 1 || count < 2 {
		return p.Provision(ctx, count)
	}

	type generated struct {
		pub scheme.PublicKey
		sec scheme.SecretKey
	}
	keys := make([]generated, count)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := uint64(0); i < count; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pub, sec, err := p.scheme.KeyGen(p.source.KeyReader(i), activationStartEpoch, p.numActiveEpochs)
			if err != nil {
				return keygenErr(i, err)
			}
			keys[i] = generated{pub: pub, sec: sec}
			p.log.Infof("generated key %d of %d", i+1, count)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	records := make([]ManifestRecord, 0, count)
	for i, k := range keys {
		rec, err := p.exporter.Export(uint64(i), k.pub, k.sec)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// keygenErr classifies a KeyGen failure: window problems are validation
// errors, anything else is a failed entropy read.
func keygenErr(index uint64, err error) *Error {
	kind := KindIO
	if errors.Is(err, scheme.ErrInvalidWindow) {
		kind = KindValidation
	}
	return &Error{Kind: kind, Index: int64(index), Msg: "key generation failed", Cause: err}
}
