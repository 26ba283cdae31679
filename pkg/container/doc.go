// Package container encodes rule sets into the rules.bin container format and
// decodes them back.
//
// A container is a fixed 48 byte little-endian header, followed by an index
// with one entry per rule, followed by the payload. The payload is the
// concatenation of every rule record, stored raw or compressed as a single
// zstd frame. Index offsets always refer to the decompressed payload.
//
//	offset size field
//	0      4    magic "RPAK"
//	4      2    format version
//	6      1    compression tag (0 none, 1 zstd)
//	7      1    flags, reserved and zero
//	8      4    rule count
//	12     4    index length
//	16     8    uncompressed payload length
//	24     8    stored payload length
//	32     8    XXH64 of the uncompressed payload
//	40     8    XXH64 of the index
//
// Index entries hold the rule id, name and risk, then the record offset and
// length, so summaries never need the payload. Strings are uvarint length
// prefixed. Patterns are stored as segment lists rather than source text.
//
// Readers must reject versions they do not know.
package container
