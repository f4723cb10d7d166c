// Package config loads and validates splice configuration from TOML.
//
// Configuration resolution order: an explicit path passed to Load, then
// ~/.config/splice/config.toml, then built-in defaults. Loaded values are
// normalized (paths expanded, defaults filled) before validation so the rest
// of the codebase never sees a partially populated Config.
package config
