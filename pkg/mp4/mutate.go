package mp4

import (
	"github.com/pkg/errors"
)

// IlstKey identifies a metadata atom under ilst: standard atoms are keyed
// by Type alone; free-form (----) atoms are keyed by (Mean, Name), and
// Type must be TypeFree.
type IlstKey struct {
	Type FourCC
	Mean string
	Name string
}

// mutateMoov is the shared splice engine behind every mutation
// primitive: it locates the single top-level moov box, lets rebuild
// produce new moov content, splices the resulting box into buf in place
// of the old one, and rewrites the chunk-offset tables against the
// result: locate, splice, rewrite sizes, rewrite offsets, in that
// order. Ancestor size propagation above moov doesn't
// apply, because moov is top-level and buildBox always computes its own
// size from its content; propagation *within* moov falls out of the same
// property applied recursively by each rebuild* helper.
func mutateMoov(buf []byte, rebuild func(moovContent []byte) ([]byte, error)) ([]byte, error) {
	moov, found, err := topLevel(buf, TypeMoov)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &MissingBoxError{Box: "moov"}
	}

	origMoovEnd := moov.ContentEnd()
	origContent := Payload(buf, moov)

	newContent, err := rebuild(origContent)
	if err != nil {
		return nil, err
	}
	newMoovBytes := buildBox(TypeMoov, newContent)
	delta := int64(len(newMoovBytes)) - int64(moov.TotalSize)

	newBuf := make([]byte, 0, len(buf)+int(delta))
	newBuf = append(newBuf, buf[:moov.Offset]...)
	newBuf = append(newBuf, newMoovBytes...)
	newBuf = append(newBuf, buf[moov.ContentEnd():]...)

	newMoovAtom, found, err := topLevel(newBuf, TypeMoov)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &MissingBoxError{Box: "moov"}
	}
	newMoovAtom, err = Walk(newBuf, newMoovAtom, 8)
	if err != nil {
		return nil, err
	}

	if err := RewriteChunkOffsets(newBuf, newMoovAtom, origMoovEnd, delta); err != nil {
		return nil, err
	}

	return newBuf, nil
}

// replaceOrAppendChild rebuilds content by replacing the first child of
// the given type with replacement, or appending replacement at the end
// if no child of that type is present. Used for container-level
// primitives (moov/udta, udta/stem) that match by type alone.
func replaceOrAppendChild(content []byte, typ FourCC, replacement []byte) ([]byte, error) {
	atoms, err := Parse(content, 0, uint64(len(content)))
	if err != nil {
		return nil, err
	}
	var out []byte
	replaced := false
	for _, a := range atoms {
		if a.Type == typ && !replaced {
			out = append(out, replacement...)
			replaced = true
			continue
		}
		out = append(out, content[a.Offset:a.Offset+a.TotalSize]...)
	}
	if !replaced {
		out = append(out, replacement...)
	}
	return out, nil
}

// ilstKeyOf reads the matching key out of an atom already parsed from
// content: its Type, plus (mean, name) if it's a free-form atom.
func ilstKeyOf(content []byte, a Atom) IlstKey {
	if a.Type != TypeFree {
		return IlstKey{Type: a.Type}
	}
	mean, name, _ := freeformKey(content, a)
	return IlstKey{Type: TypeFree, Mean: mean, Name: name}
}

// replaceOrAppendIlstKeyed rebuilds ilst content: newAtomBytes (a single,
// already-built atom, standard or free-form) replaces any existing
// child with the same key, so a key is never duplicated under one ilst;
// else it is appended at the end. Standard atoms match by type alone,
// free-form atoms by (mean, name).
func replaceOrAppendIlstKeyed(ilstContent []byte, newAtomBytes []byte) ([]byte, error) {
	newAtoms, err := Parse(newAtomBytes, 0, uint64(len(newAtomBytes)))
	if err != nil || len(newAtoms) != 1 {
		return nil, errors.Wrapf(ErrInvalidContainer, "put_ilst_atom: input is not exactly one atom")
	}
	newKey := ilstKeyOf(newAtomBytes, newAtoms[0])

	atoms, err := Parse(ilstContent, 0, uint64(len(ilstContent)))
	if err != nil {
		return nil, err
	}
	var out []byte
	replaced := false
	for _, a := range atoms {
		if !replaced && ilstKeyOf(ilstContent, a) == newKey {
			out = append(out, newAtomBytes...)
			replaced = true
			continue
		}
		out = append(out, ilstContent[a.Offset:a.Offset+a.TotalSize]...)
	}
	if !replaced {
		out = append(out, newAtomBytes...)
	}
	return out, nil
}

// removeIlstKeyed rebuilds ilst content with the child matching key
// dropped.
func removeIlstKeyed(ilstContent []byte, key IlstKey) ([]byte, error) {
	atoms, err := Parse(ilstContent, 0, uint64(len(ilstContent)))
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, a := range atoms {
		if ilstKeyOf(ilstContent, a) == key {
			continue
		}
		out = append(out, ilstContent[a.Offset:a.Offset+a.TotalSize]...)
	}
	return out, nil
}

// buildFreshIlst builds a standalone ilst box containing one atom.
func buildFreshIlst(atomBytes []byte) []byte {
	return buildBox(TypeIlst, append([]byte(nil), atomBytes...))
}

// buildItunesHdlr builds the hdlr atom iTunes-style readers expect inside
// a freshly created meta box: version/flags(4, zero), pre_defined(4,
// zero), handler_type(4) "mdir", reserved "appl" then zeros, empty
// null-terminated name(1).
func buildItunesHdlr() []byte {
	content := make([]byte, 4+4+4+12+1)
	copy(content[8:12], "mdir")
	copy(content[12:16], "appl")
	return buildBox(TypeHdlr, content)
}

// buildFreshMeta builds a standalone meta box (version/flags word, hdlr,
// ilst-with-one-atom).
func buildFreshMeta(atomBytes []byte) []byte {
	children := append(buildItunesHdlr(), buildFreshIlst(atomBytes)...)
	return buildVersionedBox(TypeMeta, children)
}

// buildFreshUdtaWithMeta builds a standalone udta box containing a fresh
// meta/ilst chain.
func buildFreshUdtaWithMeta(atomBytes []byte) []byte {
	return buildBox(TypeUdta, buildFreshMeta(atomBytes))
}

// ensureAtomInMoovIlst walks moov -> udta -> meta -> ilst, creating any
// missing intermediate, and places atomBytes as described by
// replaceOrAppendIlstKeyed.
func ensureAtomInMoovIlst(moovContent []byte, atomBytes []byte) ([]byte, error) {
	atoms, err := Parse(moovContent, 0, uint64(len(moovContent)))
	if err != nil {
		return nil, err
	}
	for _, a := range atoms {
		if a.Type != TypeUdta {
			continue
		}
		newUdtaContent, err := ensureAtomInUdtaIlst(Payload(moovContent, a), atomBytes)
		if err != nil {
			return nil, err
		}
		return replaceOrAppendChild(moovContent, TypeUdta, buildBox(TypeUdta, newUdtaContent))
	}
	return append(append([]byte(nil), moovContent...), buildFreshUdtaWithMeta(atomBytes)...), nil
}

// ensureAtomInUdtaIlst walks udta -> meta -> ilst.
func ensureAtomInUdtaIlst(udtaContent []byte, atomBytes []byte) ([]byte, error) {
	atoms, err := Parse(udtaContent, 0, uint64(len(udtaContent)))
	if err != nil {
		return nil, err
	}
	for _, a := range atoms {
		if a.Type != TypeMeta {
			continue
		}
		metaFull := Payload(udtaContent, a)
		if len(metaFull) < 4 {
			return nil, errors.Wrapf(ErrTruncated, "meta box")
		}
		vflags := metaFull[:4]
		metaChildren := metaFull[4:]
		newMetaChildren, err := ensureAtomInMetaIlst(metaChildren, atomBytes)
		if err != nil {
			return nil, err
		}
		newMetaContent := append(append([]byte(nil), vflags...), newMetaChildren...)
		return replaceOrAppendChild(udtaContent, TypeMeta, buildBox(TypeMeta, newMetaContent))
	}
	return append(append([]byte(nil), udtaContent...), buildFreshMeta(atomBytes)...), nil
}

// ensureAtomInMetaIlst walks meta -> ilst.
func ensureAtomInMetaIlst(metaChildren []byte, atomBytes []byte) ([]byte, error) {
	atoms, err := Parse(metaChildren, 0, uint64(len(metaChildren)))
	if err != nil {
		return nil, err
	}
	for _, a := range atoms {
		if a.Type != TypeIlst {
			continue
		}
		ilstContent := Payload(metaChildren, a)
		newIlstContent, err := replaceOrAppendIlstKeyed(ilstContent, atomBytes)
		if err != nil {
			return nil, err
		}
		return replaceOrAppendChild(metaChildren, TypeIlst, buildBox(TypeIlst, newIlstContent))
	}
	return append(append([]byte(nil), metaChildren...), buildFreshIlst(atomBytes)...), nil
}

// PutIlstAtom ensures moov/udta/meta/ilst exists (creating missing
// intermediates) and places atomBytes (a single, fully-built standard
// or free-form atom) as its child, replacing any existing atom with the
// same key.
func PutIlstAtom(buf []byte, atomBytes []byte) ([]byte, error) {
	return mutateMoov(buf, func(moovContent []byte) ([]byte, error) {
		return ensureAtomInMoovIlst(moovContent, atomBytes)
	})
}

// RemoveIlstAtom removes the ilst child matching key, if present. It is
// a no-op (returns buf unmodified, as a fresh copy) if the path or the
// key does not exist.
func RemoveIlstAtom(buf []byte, key IlstKey) ([]byte, error) {
	return mutateMoov(buf, func(moovContent []byte) ([]byte, error) {
		moovAtoms, err := Parse(moovContent, 0, uint64(len(moovContent)))
		if err != nil {
			return nil, err
		}
		udta, ok := findAtom(moovAtoms, TypeUdta)
		if !ok {
			return append([]byte(nil), moovContent...), nil
		}
		udtaContent := Payload(moovContent, udta)
		udtaAtoms, err := Parse(udtaContent, 0, uint64(len(udtaContent)))
		if err != nil {
			return nil, err
		}
		meta, ok := findAtom(udtaAtoms, TypeMeta)
		if !ok {
			return append([]byte(nil), moovContent...), nil
		}
		metaFull := Payload(udtaContent, meta)
		if len(metaFull) < 4 {
			return nil, errors.Wrapf(ErrTruncated, "meta box")
		}
		vflags := metaFull[:4]
		metaChildren := metaFull[4:]
		metaAtoms, err := Parse(metaChildren, 0, uint64(len(metaChildren)))
		if err != nil {
			return nil, err
		}
		ilst, ok := findAtom(metaAtoms, TypeIlst)
		if !ok {
			return append([]byte(nil), moovContent...), nil
		}
		ilstContent := Payload(metaChildren, ilst)
		newIlstContent, err := removeIlstKeyed(ilstContent, key)
		if err != nil {
			return nil, err
		}
		newMetaChildren, err := replaceOrAppendChild(metaChildren, TypeIlst, buildBox(TypeIlst, newIlstContent))
		if err != nil {
			return nil, err
		}
		newMetaContent := append(append([]byte(nil), vflags...), newMetaChildren...)
		newUdtaContent, err := replaceOrAppendChild(udtaContent, TypeMeta, buildBox(TypeMeta, newMetaContent))
		if err != nil {
			return nil, err
		}
		return replaceOrAppendChild(moovContent, TypeUdta, buildBox(TypeUdta, newUdtaContent))
	})
}

// ReadIlstAtom locates the ilst child matching key and returns its data
// sub-atom payload (after the version/type/locale prefix).
func ReadIlstAtom(buf []byte, key IlstKey) ([]byte, bool, error) {
	moov, found, err := topLevel(buf, TypeMoov)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, &MissingBoxError{Box: "moov"}
	}
	moov, err = Walk(buf, moov, 4)
	if err != nil {
		return nil, false, err
	}
	ilst, ok := FindPath(moov, TypeUdta, TypeMeta, TypeIlst)
	if !ok {
		return nil, false, nil
	}
	for _, a := range ilst.Children {
		if ilstKeyOf(buf, a) != key {
			continue
		}
		if key.Type == TypeFree {
			return freeformData(buf, a), true, nil
		}
		return itunesData(buf, a), true, nil
	}
	return nil, false, nil
}

// PutStemAtom ensures moov/udta exists and writes a plain `stem` atom
// (raw JSON body, not free-form) as a direct child of udta, replacing
// any existing stem atom.
func PutStemAtom(buf []byte, jsonBytes []byte) ([]byte, error) {
	stemBox := buildBox(TypeStem, jsonBytes)
	return mutateMoov(buf, func(moovContent []byte) ([]byte, error) {
		atoms, err := Parse(moovContent, 0, uint64(len(moovContent)))
		if err != nil {
			return nil, err
		}
		for _, a := range atoms {
			if a.Type != TypeUdta {
				continue
			}
			newUdtaContent, err := replaceOrAppendChild(Payload(moovContent, a), TypeStem, stemBox)
			if err != nil {
				return nil, err
			}
			return replaceOrAppendChild(moovContent, TypeUdta, buildBox(TypeUdta, newUdtaContent))
		}
		return append(append([]byte(nil), moovContent...), buildBox(TypeUdta, stemBox)...), nil
	})
}

// ReadStemAtom returns the raw JSON body of moov/udta/stem, if present.
func ReadStemAtom(buf []byte) ([]byte, bool, error) {
	moov, found, err := topLevel(buf, TypeMoov)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, &MissingBoxError{Box: "moov"}
	}
	moov, err = Walk(buf, moov, 2)
	if err != nil {
		return nil, false, err
	}
	udta, ok := Find(moov, TypeUdta)
	if !ok {
		return nil, false, nil
	}
	stem, ok := Find(udta, TypeStem)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), Payload(buf, stem)...), true, nil
}

// SetTrackEnabled clears or sets bit 0 (track_enabled) of the flags
// field of the trackIndex'th trak's tkhd atom. Players treat a cleared
// bit as "skip this track", which is how non-mixdown stems are hidden
// from ordinary audio players.
func SetTrackEnabled(buf []byte, trackIndex int, enabled bool) ([]byte, error) {
	return mutateMoov(buf, func(moovContent []byte) ([]byte, error) {
		atoms, err := Parse(moovContent, 0, uint64(len(moovContent)))
		if err != nil {
			return nil, err
		}
		idx := 0
		for _, a := range atoms {
			if a.Type != TypeTrak {
				continue
			}
			if idx == trackIndex {
				trakBytes := moovContent[a.Offset : a.Offset+a.TotalSize]
				newTrakBytes, err := setTkhdEnabled(trakBytes, enabled)
				if err != nil {
					return nil, err
				}
				var out []byte
				out = append(out, moovContent[:a.Offset]...)
				out = append(out, newTrakBytes...)
				out = append(out, moovContent[a.Offset+a.TotalSize:]...)
				return out, nil
			}
			idx++
		}
		return nil, &TrackNotFoundError{Index: trackIndex, Available: idx}
	})
}

func setTkhdEnabled(trakBytes []byte, enabled bool) ([]byte, error) {
	trak, err := Walk(trakBytes, Atom{Type: TypeTrak, Offset: 0, TotalSize: uint64(len(trakBytes)), HeaderSize: 8}, 1)
	if err != nil {
		return nil, err
	}
	tkhd, ok := Find(trak, TypeTkhd)
	if !ok {
		return nil, &MissingBoxError{Box: "tkhd", Path: "trak"}
	}
	content := append([]byte(nil), Payload(trakBytes, tkhd)...)
	if len(content) < 4 {
		return nil, errors.Wrapf(ErrTruncated, "tkhd flags")
	}
	flags := beUint32(content[0:4])
	if enabled {
		flags |= 0x000001
	} else {
		flags &^= 0x000001
	}
	content[0] = byte(flags >> 24)
	content[1] = byte(flags >> 16)
	content[2] = byte(flags >> 8)
	content[3] = byte(flags)

	newTkhd := buildBox(TypeTkhd, content)
	var out []byte
	out = append(out, trakBytes[:tkhd.Offset]...)
	out = append(out, newTkhd...)
	out = append(out, trakBytes[tkhd.Offset+tkhd.TotalSize:]...)
	return out, nil
}

func findAtom(atoms []Atom, typ FourCC) (Atom, bool) {
	for _, a := range atoms {
		if a.Type == typ {
			return a, true
		}
	}
	return Atom{}, false
}
