package mp4

import (
	"github.com/pkg/errors"
)

// SampleSizes is either a single fixed size shared by every sample
// (stsz with sample_size != 0) or one entry per sample.
type SampleSizes struct {
	Fixed    uint32 // non-zero means every sample has this size
	Variable []uint32

	variableCount int // declared sample_count when Fixed != 0
}

// Size returns the size in bytes of sample index i (0-based).
func (s SampleSizes) Size(i int) uint32 {
	if s.Fixed != 0 {
		return s.Fixed
	}
	if i < 0 || i >= len(s.Variable) {
		return 0
	}
	return s.Variable[i]
}

// Count returns the total number of samples described.
func (s SampleSizes) Count() int {
	if s.Fixed != 0 {
		return s.variableCount
	}
	return len(s.Variable)
}

// StscEntry is one (first_chunk, samples_per_chunk, sample_description_index)
// triple from a stsc box. first_chunk is 1-based.
type StscEntry struct {
	FirstChunk      uint32
	SamplesPerChunk uint32
	SampleDescIdx   uint32
}

// SttsEntry is one (count, delta) pair from a stts box.
type SttsEntry struct {
	Count uint32
	Delta uint32
}

// SampleMap is the coherent sample-table view of one track: everything
// needed to locate and size each sample in the file.
type SampleMap struct {
	ChunkOffsets []uint64
	Sizes        SampleSizes
	Stsc         []StscEntry
	Stts         []SttsEntry
	StsdRaw      []byte
	Timescale    uint32
	Duration     uint64

	stcoAtom Atom // location of the chunk-offset table actually present (stco or co64)
	isCo64   bool
}

// SamplesPerChunk returns the sample count declared for chunk index
// chunkIdx (1-based, per ISO-BMFF convention), found by taking the stsc
// entry with the largest first_chunk <= chunkIdx.
func (sm SampleMap) SamplesPerChunk(chunkIdx uint32) (uint32, error) {
	var best *StscEntry
	for i := range sm.Stsc {
		e := &sm.Stsc[i]
		if e.FirstChunk <= chunkIdx && (best == nil || e.FirstChunk > best.FirstChunk) {
			best = e
		}
	}
	if best == nil {
		return 0, errors.Wrapf(ErrInvalidContainer, "no stsc entry covers chunk %d", chunkIdx)
	}
	return best.SamplesPerChunk, nil
}

// DecodeSampleTable decodes the stbl descendant of trak into a SampleMap.
func DecodeSampleTable(b []byte, trak Atom) (SampleMap, error) {
	var sm SampleMap

	mdia, ok := Find(trak, TypeMdia)
	if !ok {
		return sm, &MissingBoxError{Box: "mdia", Path: "trak"}
	}
	mdhd, ok := Find(mdia, TypeMdhd)
	if !ok {
		return sm, &MissingBoxError{Box: "mdhd", Path: "trak/mdia"}
	}
	timescale, duration, err := decodeMdhd(Payload(b, mdhd))
	if err != nil {
		return sm, err
	}
	sm.Timescale = timescale
	sm.Duration = duration

	minf, ok := Find(mdia, TypeMinf)
	if !ok {
		return sm, &MissingBoxError{Box: "minf", Path: "trak/mdia"}
	}
	stbl, ok := Find(minf, TypeStbl)
	if !ok {
		return sm, &MissingBoxError{Box: "stbl", Path: "trak/mdia/minf"}
	}

	stsd, ok := Find(stbl, TypeStsd)
	if !ok {
		return sm, &MissingBoxError{Box: "stsd", Path: "trak/mdia/minf/stbl"}
	}
	sm.StsdRaw = append([]byte(nil), Payload(b, stsd)...)

	stsz, ok := Find(stbl, TypeStsz)
	if !ok {
		return sm, &MissingBoxError{Box: "stsz", Path: "trak/mdia/minf/stbl"}
	}
	sizes, err := decodeStsz(Payload(b, stsz))
	if err != nil {
		return sm, err
	}
	sm.Sizes = sizes

	stsc, ok := Find(stbl, TypeStsc)
	if !ok {
		return sm, &MissingBoxError{Box: "stsc", Path: "trak/mdia/minf/stbl"}
	}
	sm.Stsc, err = decodeStsc(Payload(b, stsc))
	if err != nil {
		return sm, err
	}

	if stco, ok := Find(stbl, TypeStco); ok {
		sm.stcoAtom = stco
		sm.ChunkOffsets, err = decodeStco32(Payload(b, stco))
		if err != nil {
			return sm, err
		}
	} else if co64, ok := Find(stbl, TypeCo64); ok {
		sm.stcoAtom = co64
		sm.isCo64 = true
		sm.ChunkOffsets, err = decodeCo64(Payload(b, co64))
		if err != nil {
			return sm, err
		}
	} else {
		return sm, &MissingBoxError{Box: "stco/co64", Path: "trak/mdia/minf/stbl"}
	}

	if uint32(len(sm.ChunkOffsets)) < lastFirstChunk(sm.Stsc) {
		return sm, &InvalidContainerError{Box: "stsc", Reason: "chunk_offsets shorter than last stsc.first_chunk"}
	}

	if stts, ok := Find(stbl, TypeStts); ok {
		sm.Stts, err = decodeStts(Payload(b, stts))
		if err != nil {
			return sm, err
		}
	} else {
		// Fall back to a single conformant entry using a typical AAC
		// frame size, so a synthesized file still reports a sane duration.
		sm.Stts = []SttsEntry{{Count: uint32(sm.Sizes.Count()), Delta: 1024}}
	}

	return sm, nil
}

func lastFirstChunk(stsc []StscEntry) uint32 {
	var max uint32
	for _, e := range stsc {
		if e.FirstChunk > max {
			max = e.FirstChunk
		}
	}
	return max
}

func decodeMdhd(p []byte) (timescale uint32, duration uint64, err error) {
	if len(p) < 4 {
		return 0, 0, errors.Wrapf(ErrTruncated, "mdhd too short")
	}
	version := p[0]
	switch version {
	case 0:
		if len(p) < 4+4+4+4+4 {
			return 0, 0, errors.Wrapf(ErrTruncated, "mdhd v0 too short")
		}
		timescale = beUint32(p[12:16])
		duration = uint64(beUint32(p[16:20]))
	case 1:
		if len(p) < 4+8+8+4+8 {
			return 0, 0, errors.Wrapf(ErrTruncated, "mdhd v1 too short")
		}
		timescale = beUint32(p[20:24])
		duration = beUint64(p[24:32])
	default:
		return 0, 0, errors.Wrapf(ErrInvalidContainer, "mdhd: unsupported version %d", version)
	}
	return timescale, duration, nil
}

// decodeStsz decodes the sample-size table. Format: version/flags(4),
// sample_size(4), sample_count(4), then sample_count*4 bytes of
// per-sample sizes if sample_size == 0.
func decodeStsz(p []byte) (SampleSizes, error) {
	if len(p) < 12 {
		return SampleSizes{}, errors.Wrapf(ErrTruncated, "stsz header")
	}
	sampleSize := beUint32(p[4:8])
	sampleCount := beUint32(p[8:12])

	if sampleSize != 0 {
		return SampleSizes{Fixed: sampleSize, variableCount: int(sampleCount)}, nil
	}

	need := 12 + int(sampleCount)*4
	if len(p) < need {
		return SampleSizes{}, errors.Wrapf(ErrTruncated, "stsz entries: need %d have %d", need, len(p))
	}
	sizes := make([]uint32, sampleCount)
	for i := range sizes {
		off := 12 + i*4
		sizes[i] = beUint32(p[off : off+4])
	}
	return SampleSizes{Variable: sizes}, nil
}

// decodeStsc decodes entry_count then entry_count (first_chunk,
// samples_per_chunk, sample_description_index) triples.
func decodeStsc(p []byte) ([]StscEntry, error) {
	if len(p) < 8 {
		return nil, errors.Wrapf(ErrTruncated, "stsc header")
	}
	count := beUint32(p[4:8])
	need := 8 + int(count)*12
	if len(p) < need {
		return nil, errors.Wrapf(ErrTruncated, "stsc entries: need %d have %d", need, len(p))
	}
	entries := make([]StscEntry, count)
	var prevFirst uint32
	for i := range entries {
		off := 8 + i*12
		e := StscEntry{
			FirstChunk:      beUint32(p[off : off+4]),
			SamplesPerChunk: beUint32(p[off+4 : off+8]),
			SampleDescIdx:   beUint32(p[off+8 : off+12]),
		}
		if i > 0 && e.FirstChunk <= prevFirst {
			return nil, &InvalidContainerError{Box: "stsc", Reason: "first_chunk not strictly increasing"}
		}
		prevFirst = e.FirstChunk
		entries[i] = e
	}
	return entries, nil
}

func decodeStco32(p []byte) ([]uint64, error) {
	if len(p) < 8 {
		return nil, errors.Wrapf(ErrTruncated, "stco header")
	}
	count := beUint32(p[4:8])
	need := 8 + int(count)*4
	if len(p) < need {
		return nil, errors.Wrapf(ErrTruncated, "stco entries: need %d have %d", need, len(p))
	}
	out := make([]uint64, count)
	for i := range out {
		off := 8 + i*4
		out[i] = uint64(beUint32(p[off : off+4]))
	}
	return out, nil
}

func decodeCo64(p []byte) ([]uint64, error) {
	if len(p) < 8 {
		return nil, errors.Wrapf(ErrTruncated, "co64 header")
	}
	count := beUint32(p[4:8])
	need := 8 + int(count)*8
	if len(p) < need {
		return nil, errors.Wrapf(ErrTruncated, "co64 entries: need %d have %d", need, len(p))
	}
	out := make([]uint64, count)
	for i := range out {
		off := 8 + i*8
		out[i] = beUint64(p[off : off+8])
	}
	return out, nil
}

// decodeStts decodes entry_count then (count, delta) pairs.
func decodeStts(p []byte) ([]SttsEntry, error) {
	if len(p) < 8 {
		return nil, errors.Wrapf(ErrTruncated, "stts header")
	}
	count := beUint32(p[4:8])
	need := 8 + int(count)*8
	if len(p) < need {
		return nil, errors.Wrapf(ErrTruncated, "stts entries: need %d have %d", need, len(p))
	}
	out := make([]SttsEntry, count)
	for i := range out {
		off := 8 + i*8
		out[i] = SttsEntry{Count: beUint32(p[off : off+4]), Delta: beUint32(p[off+4 : off+8])}
	}
	return out, nil
}
