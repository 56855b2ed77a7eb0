// Package config loads and validates the storyloom configuration file.
//
// Configuration is TOML, discovered at ~/.config/storyloom/config.toml or an
// explicit --config path. Defaults are safe for local development: a
// filesystem blob store under the data directory and no external service
// credentials.
package config
