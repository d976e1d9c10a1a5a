// Package config loads, validates, and normalizes psfd configuration.
//
// Configuration lives in a TOML file (default ~/.config/psfd/config.toml,
// with a project-local psfd.toml fallback). Load layers the file over
// repository defaults, expands and absolutizes path fields, and validates
// the result so the rest of the system can trust every field.
package config
