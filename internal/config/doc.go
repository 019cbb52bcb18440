// Package config loads the tessera CLI configuration from a YAML or TOML file.
package config
