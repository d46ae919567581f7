// Package pkgconfig provides a small abstraction for reading configuration values.
//
// Business code depends on the Config interface; Viper is the implementation.
// Values resolve in this order: an explicitly set command line flag, the
// environment, the config file, then defaults registered in code.
//
// Getters convert to common types with simple decoding rules (for example
// base64 for binary values).
package pkgconfig
