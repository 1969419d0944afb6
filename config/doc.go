// Package config reads wasmboot settings from YAML files and the
// environment. Values are layered: Default, then LoadFromFile, then
// LoadFromEnv, then command-line overrides through Merge.
package config
