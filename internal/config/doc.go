// Package config provides configuration management for the snpcli
// pipeline tools.
//
// Configuration is loaded from environment variables (SNP_ prefix)
// merged with an optional config.yaml file, with environment taking
// precedence. The Paths type is the single source of truth for where
// the ticker universe, per-ticker artifacts, the merged table and the
// logs live on disk.
package config
