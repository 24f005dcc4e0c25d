// Package config loads and validates the TOML configuration that drives the
// graph-building pipeline: external tool commands, compilation scales, miscue
// weights, logging preferences, and the run ledger location.
//
// Configuration resolution order: an explicit --config path, then
// ~/.config/lectern/config.toml, then a lectern.toml in the working
// directory. Missing files fall back to repository defaults; every path field
// is tilde-expanded and normalized to an absolute path.
package config
