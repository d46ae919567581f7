// Package pkguid provides helpers for generating unique string identifiers.
//
// The codebase uses the StringID interface to avoid hard-coding a specific
// UID strategy. The HTTP router uses it to mint correlation IDs.
package pkguid
