// Package config loads application configuration from environment
// variables (prefix CSVCOMPARE) merged with an optional YAML file, and
// resolves the writable directories used by the pipeline.
//
// Precedence, highest first: explicitly set environment variables,
// the YAML config file, envconfig struct defaults.
package config
