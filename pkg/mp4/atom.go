package mp4

import (
	"github.com/pkg/errors"
)

// Atom is a node in the ISO-BMFF box tree: a four-character type, its
// absolute offset and total size (header included), and its children if
// it was walked as a container. Atoms are produced by Parse/Walk as a
// read-only view over the source byte slice; there is no long-lived
// mutable tree. Mutation always goes back through the original bytes.
type Atom struct {
	Type       FourCC
	Offset     uint64
	TotalSize  uint64
	HeaderSize uint8
	Children   []Atom
}

// ContentOffset is the absolute offset of the atom's payload, i.e. just
// past its header.
func (a Atom) ContentOffset() uint64 { return a.Offset + uint64(a.HeaderSize) }

// ContentEnd is the absolute offset just past the atom's payload.
func (a Atom) ContentEnd() uint64 { return a.Offset + a.TotalSize }

// childStart returns the absolute offset at which this atom's children
// begin. For meta, that's header+4 (skipping the version/flags word);
// every other container's children begin immediately after the header.
func (a Atom) childStart() uint64 {
	if a.Type == TypeMeta {
		return a.ContentOffset() + 4
	}
	return a.ContentOffset()
}

// Parse scans a contiguous window [offset, limit) of b and returns the
// flat list of atoms found there. It does not recurse into children; use
// Walk for that.
func Parse(b []byte, offset, limit uint64) ([]Atom, error) {
	var atoms []Atom
	pos := offset

	for pos < limit {
		if limit-pos < 8 {
			return nil, errors.Wrapf(ErrTruncated, "atom header at offset %d", pos)
		}

		size32 := beUint32(b[pos : pos+4])
		var typ FourCC
		copy(typ[:], b[pos+4:pos+8])

		headerSize := uint8(8)
		var totalSize uint64

		switch {
		case size32 == 0:
			// Extends to the end of the enclosing box/window.
			totalSize = limit - pos
		case size32 == 1:
			if limit-pos < 16 {
				return nil, errors.Wrapf(ErrTruncated, "64-bit size for atom %q at offset %d", typ, pos)
			}
			totalSize = beUint64(b[pos+8 : pos+16])
			headerSize = 16
		case size32 < 8:
			return nil, errors.Wrapf(ErrInvalidSize, "atom %q at offset %d has size %d", typ, pos, size32)
		default:
			totalSize = uint64(size32)
		}

		if totalSize < uint64(headerSize) || pos+totalSize > limit {
			return nil, errors.Wrapf(ErrTruncated, "atom %q at offset %d claims size %d past window end %d", typ, pos, totalSize, limit)
		}

		atoms = append(atoms, Atom{
			Type:       typ,
			Offset:     pos,
			TotalSize:  totalSize,
			HeaderSize: headerSize,
		})

		if size32 == 0 {
			break
		}
		pos += totalSize
	}

	return atoms, nil
}

// Walk recursively materializes children for atom, and for every
// descendant whose type is a known container, down to maxDepth levels.
// maxDepth <= 0 means "no further recursion": the atom's own Children
// field is left nil.
func Walk(b []byte, atom Atom, maxDepth int) (Atom, error) {
	if maxDepth <= 0 || !containerTypes[atom.Type] {
		return atom, nil
	}

	children, err := Parse(b, atom.childStart(), atom.ContentEnd())
	if err != nil {
		return Atom{}, errors.Wrapf(err, "walking children of %q at offset %d", atom.Type, atom.Offset)
	}

	for i := range children {
		child, err := Walk(b, children[i], maxDepth-1)
		if err != nil {
			return Atom{}, err
		}
		children[i] = child
	}

	atom.Children = children
	return atom, nil
}

// ParseTree parses the top-level atoms of a whole file buffer and walks
// every container down to maxDepth.
func ParseTree(b []byte, maxDepth int) ([]Atom, error) {
	top, err := Parse(b, 0, uint64(len(b)))
	if err != nil {
		return nil, err
	}
	for i := range top {
		a, err := Walk(b, top[i], maxDepth)
		if err != nil {
			return nil, err
		}
		top[i] = a
	}
	return top, nil
}

// Find returns the first immediate child of atom matching typ, or false.
func Find(atom Atom, typ FourCC) (Atom, bool) {
	for _, c := range atom.Children {
		if c.Type == typ {
			return c, true
		}
	}
	return Atom{}, false
}

// FindPath walks a dotted chain of child types starting from atom, e.g.
// FindPath(moov, TypeUdta, TypeMeta, TypeIlst).
func FindPath(atom Atom, path ...FourCC) (Atom, bool) {
	cur := atom
	for _, typ := range path {
		next, ok := Find(cur, typ)
		if !ok {
			return Atom{}, false
		}
		cur = next
	}
	return cur, true
}

// FindAll returns every immediate child of atom matching typ, in order.
func FindAll(atom Atom, typ FourCC) []Atom {
	var out []Atom
	for _, c := range atom.Children {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// Payload returns the atom's content bytes (everything after its
// header, excluding children interpretation; callers decide how to
// parse it further).
func Payload(b []byte, atom Atom) []byte {
	return b[atom.ContentOffset():atom.ContentEnd()]
}

// topLevel finds the single top-level atom of typ in a whole-file
// buffer, or ok=false.
func topLevel(b []byte, typ FourCC) (Atom, bool, error) {
	top, err := Parse(b, 0, uint64(len(b)))
	if err != nil {
		return Atom{}, false, err
	}
	for _, a := range top {
		if a.Type == typ {
			return a, true, nil
		}
	}
	return Atom{}, false, nil
}
