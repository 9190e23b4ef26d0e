// Package config provides configuration structures and utilities for threatlens.
// It defines the model provider settings, scan and report preferences, the
// HTTP listen address, and the optional YAML configuration file.
package config
