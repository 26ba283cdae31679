package container

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/macropower/rulepack/pkg/rule"
)

// IndexEntry locates one rule record in the decompressed payload.
type IndexEntry struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Risk   rule.Risk `json:"risk"`
	Offset uint64    `json:"offset"`
	Length uint64    `json:"length"`
}

func appendIndex(b []byte, entries []IndexEntry) ([]byte, error) {
	for _, e := range entries {
		risk, err := riskCode(e.Risk)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", e.ID, err)
		}

		b = appendString(b, e.ID)
		b = appendString(b, e.Name)
		b = append(b, risk)
		b = appendCount(b, int(e.Offset))
		b = appendCount(b, int(e.Length))
	}

	return b, nil
}

// ReadIndex decodes the header and index of data, verifying the index
// checksum. The payload is never read.
func ReadIndex(data []byte) (Header, []IndexEntry, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return h, nil, err
	}

	end := HeaderSize + uint64(h.IndexLen)
	if uint64(len(data)) < end {
		return h, nil, fmt.Errorf("%w: index needs %d bytes, have %d", ErrTruncated, h.IndexLen, len(data)-HeaderSize)
	}

	raw := data[HeaderSize:end]
	if sum := xxhash.Sum64(raw); sum != h.IndexSum {
		return h, nil, fmt.Errorf("%w: index checksum %016x, header declares %016x", ErrChecksumMismatch, sum, h.IndexSum)
	}

	rd := newReader(raw, ErrCorruptIndex)
	if uint64(h.RuleCount) > uint64(len(raw)) {
		return h, nil, fmt.Errorf("%w: %d rules in %d index bytes", ErrCorruptIndex, h.RuleCount, len(raw))
	}

	entries := make([]IndexEntry, 0, h.RuleCount)
	seen := make(map[string]struct{}, h.RuleCount)

	var next uint64

	for i := range h.RuleCount {
		e := IndexEntry{
			ID:   rd.string(),
			Name: rd.string(),
		}

		riskByte := rd.u8()
		e.Offset = rd.uvarint()
		e.Length = rd.uvarint()

		if rd.err != nil {
			break
		}

		if !rule.ValidID(e.ID) {
			rd.fail("entry %d: invalid id %q", i, e.ID)
			break
		}

		risk, ok := riskFromCode(riskByte)
		if !ok {
			rd.fail("entry %d: unknown risk code %d", i, riskByte)
			break
		}

		e.Risk = risk

		if _, dup := seen[e.ID]; dup {
			rd.fail("entry %d: duplicate id %q", i, e.ID)
			break
		}

		seen[e.ID] = struct{}{}

		if e.Offset != next {
			rd.fail("entry %d: offset %d, expected %d", i, e.Offset, next)
			break
		}

		next += e.Length
		if next > h.PayloadLen {
			rd.fail("entry %d: record ends at %d past payload length %d", i, next, h.PayloadLen)
			break
		}

		entries = append(entries, e)
	}

	err = rd.done()
	if err != nil {
		return h, nil, err
	}
	if next != h.PayloadLen {
		return h, nil, fmt.Errorf("%w: records cover %d of %d payload bytes", ErrCorruptIndex, next, h.PayloadLen)
	}

	return h, entries, nil
}
