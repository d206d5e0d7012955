// Package config loads the pyco configuration file.
//
// Files are YAML (.yaml, .yml) or CUE (.cue). Either form is checked against
// the embedded CUE schema before it is decoded, so unknown keys and invalid
// values are reported with the offending path. Keys left out of a file keep
// the values of Default.
package config
