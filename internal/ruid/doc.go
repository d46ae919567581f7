// Package ruid wires the id generator: it reads the ruid.* settings, resolves
// this instance's (cluster, node) identity, calibrates the clock, and mounts
// the HTTP endpoints on the shared router.
//
// Ids are 64-bit, laid out from most to least significant bit as
// [timestamp | sequence | cluster | node]. They increase strictly within one
// process and never collide across instances with distinct identities.
package ruid
