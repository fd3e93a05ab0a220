// Package config loads application settings from an optional YAML file and
// SKILLFORGE_-prefixed environment variables, applies defaults, and validates
// the result with struct tags before any component is constructed.
package config
