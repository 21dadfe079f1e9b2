// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/collector"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(".muzzle", "db"), cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, collector.DefaultVirtualFieldMethod, cfg.Collector.VirtualField.Method)
	assert.Len(t, cfg.CollectorOptions(), 2)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "muzzle.yaml")
	doc := `
storage:
  path: /var/lib/muzzle
  gc_interval: 30m
logging:
  level: debug
  json: true
collector:
  helper_prefixes: [com.acme.]
  library_prefixes: [com.acme.library.]
matcher:
  parallelism: 8
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("MUZZLE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/muzzle", cfg.Storage.Path)
	assert.Equal(t, 30*time.Minute, cfg.Storage.GCInterval)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, []string{"com.acme."}, cfg.Collector.HelperPrefixes)
	assert.Equal(t, 8, cfg.Matcher.Parallelism)
	assert.Equal(t, 32, cfg.Matcher.CacheShards)
	assert.Equal(t, []string{"java."}, cfg.Collector.PlatformPrefixes)
	assert.Len(t, cfg.CollectorOptions(), 3)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Storage, cfg.Storage)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "storage: [",
		"empty path":    "storage:\n  path: \"\"\n",
		"bad level":     "logging:\n  level: loud\n",
		"no shards":     "matcher:\n  cache_shards: 0\n",
		"bad exporter":  "telemetry:\n  trace_exporter: zipkin\n",
		"no vf method":  "collector:\n  virtual_field:\n    method: \"\"\n",
		"zero parallel": "matcher:\n  parallelism: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "muzzle.yaml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidate_NamesFields(t *testing.T) {
	cfg := Default()
	cfg.Matcher.CacheShards = 0
	cfg.Collector.VirtualField.Descriptor = "Ljava/lang/Object;"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "Config.Matcher.CacheShards (gte)")
	assert.Contains(t, err.Error(), "Config.Collector.VirtualField.Descriptor (startswith)")
}
