package mp4

import (
	"encoding/binary"
)

// buildBox wraps content in a standard 32-bit-size box header. Callers
// needing the 64-bit extended-size form (content > ~4GiB) are out of
// scope: every atom this engine synthesizes or mutates is metadata-sized.
func buildBox(typ FourCC, content []byte) []byte {
	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(content)))
	copy(buf[4:8], typ[:])
	copy(buf[8:], content)
	return buf
}

// buildDataAtom builds an iTunes/free-form `data` sub-atom: version(1)
// + dataType(3, big-endian) + locale(4) + payload.
func buildDataAtom(dataType int, payload []byte) []byte {
	content := make([]byte, 8+len(payload))
	content[0] = 0
	content[1] = byte(dataType >> 16)
	content[2] = byte(dataType >> 8)
	content[3] = byte(dataType)
	// bytes 4-7 (locale) left zero
	copy(content[8:], payload)
	return buildBox(TypeData, content)
}

// buildItunesAtom wraps a data atom in its standard-type or free-form
// parent: `typ(data(...))`.
func buildItunesAtom(typ FourCC, dataType int, payload []byte) []byte {
	return buildBox(typ, buildDataAtom(dataType, payload))
}

// buildVersionedBox wraps content after a leading 4-byte version/flags
// word of zero, used for `meta` and other FullBox containers.
func buildVersionedBox(typ FourCC, content []byte) []byte {
	full := make([]byte, 4+len(content))
	copy(full[4:], content)
	return buildBox(typ, full)
}

// buildMeanNameAtom builds the `mean` or `name` sub-atom of a free-form
// (----) atom: version/flags(4) + UTF-8 string.
func buildMeanNameAtom(typ FourCC, value string) []byte {
	content := make([]byte, 4+len(value))
	copy(content[4:], value)
	return buildBox(typ, content)
}

// buildFreeformAtom builds a complete `----` atom: mean, name, data
// children concatenated, keyed by (mean, name).
func buildFreeformAtom(mean, name string, dataType int, payload []byte) []byte {
	var content []byte
	content = append(content, buildMeanNameAtom(TypeMean, mean)...)
	content = append(content, buildMeanNameAtom(TypeName, name)...)
	content = append(content, buildDataAtom(dataType, payload)...)
	return buildBox(TypeFree, content)
}

// freeformKey reads the (mean, name) pair out of a `----` atom's raw
// content (everything after the ---- header).
func freeformKey(b []byte, freeform Atom) (mean, name string, ok bool) {
	children, err := Parse(b, freeform.ContentOffset(), freeform.ContentEnd())
	if err != nil {
		return "", "", false
	}
	for _, c := range children {
		p := Payload(b, c)
		if len(p) < 4 {
			continue
		}
		switch c.Type {
		case TypeMean:
			mean = string(p[4:])
		case TypeName:
			name = string(p[4:])
		}
	}
	return mean, name, mean != "" || name != ""
}

// freeformData returns the raw `data` sub-atom payload (after the
// version/type/locale prefix) of a `----` atom, or nil.
func freeformData(b []byte, freeform Atom) []byte {
	children, err := Parse(b, freeform.ContentOffset(), freeform.ContentEnd())
	if err != nil {
		return nil
	}
	for _, c := range children {
		if c.Type != TypeData {
			continue
		}
		p := Payload(b, c)
		if len(p) < 8 {
			return nil
		}
		return p[8:]
	}
	return nil
}

// itunesData returns an iTunes standard atom's `data` sub-atom payload
// (after the version/type/locale prefix), or nil.
func itunesData(b []byte, atom Atom) []byte {
	children, err := Parse(b, atom.ContentOffset(), atom.ContentEnd())
	if err != nil {
		return nil
	}
	for _, c := range children {
		if c.Type != TypeData {
			continue
		}
		p := Payload(b, c)
		if len(p) < 8 {
			return nil
		}
		return p[8:]
	}
	return nil
}
