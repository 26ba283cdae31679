// Package packer implements the pack, unpack and info operations.
//
// Pack loads and validates a rule tree, canonicalizes it, encodes it into a
// container and writes the result atomically. Unpack decodes a container and
// writes each rule back out as a YAML document. Info summarizes a container
// from its header and index alone.
package packer
