// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	mbadger "github.com/AleutianAI/AleutianMuzzle/services/muzzle/storage/badger"
)

const keyPrefix = "artifact/"

func artifactKey(unit string) []byte {
	return []byte(keyPrefix + unit)
}

// Store persists artifacts in BadgerDB under "artifact/<unit>".
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *mbadger.DB
	logger *slog.Logger
}

// NewStore wraps an open database. The caller keeps ownership of db.
func NewStore(db *mbadger.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Put stores a, replacing any artifact of the same unit.
func (s *Store) Put(ctx context.Context, a *Artifact) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(artifactKey(a.Unit), data)
	})
	if err != nil {
		return fmt.Errorf("store artifact %s: %w", a.Unit, err)
	}
	s.logger.Debug("artifact stored",
		slog.String("unit", a.Unit),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Get loads the artifact of unit.
//
// Outputs:
//
//	*Artifact - The decoded artifact.
//	error - Wraps ErrArtifactNotFound when nothing is stored for unit.
func (s *Store) Get(ctx context.Context, unit string) (*Artifact, error) {
	var data []byte
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(artifactKey(unit))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, unit)
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", unit, err)
	}
	a, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", unit, err)
	}
	return a, nil
}

// List returns the stored unit names in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var units []string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			units = append(units, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	sort.Strings(units)
	return units, nil
}

// Delete removes the artifact of unit.
func (s *Store) Delete(ctx context.Context, unit string) error {
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(artifactKey(unit)); err != nil {
			return err
		}
		return txn.Delete(artifactKey(unit))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, unit)
	}
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", unit, err)
	}
	return nil
}
