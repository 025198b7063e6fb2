// Package config defines the detector settings and provides helpers to load,
// validate and save them in YAML format.
//
// Durations are written as Go duration strings ("500ms", "5m"). Validate fills
// in defaults for every optional field.
package config
