package mp4

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// RewriteChunkOffsets shifts stco/co64 entries after moov's size
// changed. It must be called against buf *after* the moov box (and everything
// following it) has already been spliced into place: the new moov atom
// passed in must have been parsed from buf itself, fully walked down to
// its stco/co64 descendants.
//
// For every stco/co64 entry e found under moov, if e >= threshold
// (originalMoovEnd, the end offset of moov *before* the mutation) the
// entry is rewritten in place to e + delta. Entries below threshold
// point at data that did not move (the mdat-before-moov layout) and are
// left untouched. Must run before any caller treats buf's offsets as
// final.
func RewriteChunkOffsets(buf []byte, moov Atom, threshold uint64, delta int64) error {
	tables := collectOffsetTables(moov)
	for _, t := range tables {
		if err := rewriteOneTable(buf, t, threshold, delta); err != nil {
			return err
		}
	}
	return nil
}

type offsetTable struct {
	atom   Atom
	isCo64 bool
}

// collectOffsetTables finds every stco/co64 atom reachable under moov,
// by recursing into trak/mdia/minf/stbl (and moov itself).
func collectOffsetTables(atom Atom) []offsetTable {
	var out []offsetTable
	switch atom.Type {
	case TypeStco:
		out = append(out, offsetTable{atom: atom, isCo64: false})
		return out
	case TypeCo64:
		out = append(out, offsetTable{atom: atom, isCo64: true})
		return out
	}
	switch atom.Type {
	case TypeMoov, TypeTrak, TypeMdia, TypeMinf, TypeStbl:
		for _, c := range atom.Children {
			out = append(out, collectOffsetTables(c)...)
		}
	}
	return out
}

func rewriteOneTable(buf []byte, t offsetTable, threshold uint64, delta int64) error {
	content := buf[t.atom.ContentOffset():t.atom.ContentEnd()]
	if len(content) < 8 {
		return errors.Wrapf(ErrTruncated, "stco/co64 header at offset %d", t.atom.Offset)
	}
	count := beUint32(content[4:8])
	entryWidth := 4
	if t.isCo64 {
		entryWidth = 8
	}
	need := 8 + int(count)*entryWidth
	if len(content) < need {
		return errors.Wrapf(ErrTruncated, "stco/co64 entries at offset %d", t.atom.Offset)
	}

	for i := uint32(0); i < count; i++ {
		off := 8 + int(i)*entryWidth
		var cur uint64
		if t.isCo64 {
			cur = beUint64(content[off : off+8])
		} else {
			cur = uint64(beUint32(content[off : off+4]))
		}
		if cur < threshold {
			continue
		}
		next := int64(cur) + delta
		if next < 0 {
			return errors.Wrapf(ErrOffsetOverflow, "stco/co64 entry %d would go negative", cur)
		}
		if !t.isCo64 && uint64(next) > 0xFFFFFFFF {
			return &OffsetOverflowError{Entry: cur, Delta: delta}
		}
		if t.isCo64 {
			binary.BigEndian.PutUint64(content[off:off+8], uint64(next))
		} else {
			binary.BigEndian.PutUint32(content[off:off+4], uint32(next))
		}
	}
	return nil
}
