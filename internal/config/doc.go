// SPDX-License-Identifier: MPL-2.0

// Package config loads and validates browserprov configuration.
//
// Configuration lives in a CUE file validated against an embedded schema
// before being merged into Viper, so schema violations are reported with
// file positions instead of surfacing later as odd runtime behavior.
package config
