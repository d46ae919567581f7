// Package cmd holds the ruid command line: serve runs the HTTP service,
// decode and layout inspect ids offline with the same configuration.
package cmd
