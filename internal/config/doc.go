// Package config loads lukija's settings from defaults, a YAML file and
// LUKIJA_* environment variables, and watches the file for voice changes.
package config
