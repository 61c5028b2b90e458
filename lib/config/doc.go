// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the chunk service's YAML configuration.
//
// The file is named by the BUREAU_CHUNK_CONFIG environment variable
// (via [Load]) or a --config flag (via [LoadFile]). There is no search
// path and no discovery. Values not present in the file keep the
// [Default] values.
//
// A file may carry development, staging and production sections that
// override base values when [Config].Environment matches. ${HOME},
// ${BUREAU_CHUNK_ROOT} and ${VAR:-default} are expanded in path fields
// after loading.
//
// Sizes are human-readable ("8MiB", "512KiB") and durations use Go
// syntax ("5s"); [Config.Validate] rejects values that do not parse.
package config
