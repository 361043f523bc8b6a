// Package fixture builds synthetic, well-formed MP4/M4A byte buffers
// for pkg/mp4's tests. It exists so those tests never shell out to an
// external encoder: everything here is assembled by hand, byte by
// byte, from the same ISO-BMFF layout pkg/mp4 itself parses.
package fixture

import "encoding/binary"

// Track describes one trak's sample table for Build.
type Track struct {
	Timescale       uint32
	HandlerType     string // defaults to "soun"
	StsdRaw         []byte // defaults to DefaultAudioStsd()
	Sizes           []uint32
	SamplesPerChunk uint32 // samples grouped per chunk; 0 means one chunk holds all samples
	Delta           uint32 // stts delta per sample; 0 means "omit stts" (exercises the fallback)
	UseCo64         bool
	Disabled        bool // tkhd track_enabled bit cleared
}

// Options configures the whole file Build produces.
type Options struct {
	Tracks   []Track
	MdatFirst bool // lay out mdat before moov instead of after
}

// Build assembles a complete MP4 byte buffer for opts, placing track
// sample data contiguously inside a single mdat.
func Build(opts Options) []byte {
	type laidOutTrack struct {
		track      Track
		chunks     [][]byte // concatenated sample bytes, one entry per chunk
		chunkSizes []uint32 // byte length of each chunk
	}

	laid := make([]laidOutTrack, len(opts.Tracks))
	var mdatContent []byte
	chunkOffsetsAbs := make([][]uint64, len(opts.Tracks))

	// Pass 1: lay out sample bytes and record chunk boundaries within
	// mdat content (relative offsets, fixed up to absolute once the
	// preceding atoms' total size is known).
	for ti, tr := range opts.Tracks {
		spc := tr.SamplesPerChunk
		if spc == 0 {
			spc = uint32(len(tr.Sizes))
			if spc == 0 {
				spc = 1
			}
		}
		var chunks [][]byte
		var chunkSizes []uint32
		si := 0
		for si < len(tr.Sizes) {
			end := si + int(spc)
			if end > len(tr.Sizes) {
				end = len(tr.Sizes)
			}
			var chunk []byte
			for _, sz := range tr.Sizes[si:end] {
				chunk = append(chunk, sampleBytes(sz)...)
			}
			chunks = append(chunks, chunk)
			chunkSizes = append(chunkSizes, uint32(len(chunk)))
			si = end
		}
		laid[ti] = laidOutTrack{track: tr, chunks: chunks, chunkSizes: chunkSizes}
	}

	ftypBytes := buildFtyp()

	// Pass 2: build moov with placeholder (zero) chunk offsets, so we
	// know its size before computing absolute offsets.
	buildMoov := func(offsets [][]uint64) []byte {
		var trakBoxes []byte
		for ti, lt := range laid {
			trakBoxes = append(trakBoxes, buildTrak(ti+1, lt.track, lt.chunkSizes, offsets[ti])...)
		}
		moovContent := append(buildMvhd(opts.Tracks), trakBoxes...)
		return box("moov", moovContent)
	}

	placeholderOffsets := make([][]uint64, len(laid))
	for ti, lt := range laid {
		placeholderOffsets[ti] = make([]uint64, len(lt.chunks))
	}
	moovSize := len(buildMoov(placeholderOffsets))

	var mdatBase uint64
	if opts.MdatFirst {
		mdatBase = uint64(len(ftypBytes)) + 8
	} else {
		mdatBase = uint64(len(ftypBytes)) + uint64(moovSize) + 8
	}

	pos := mdatBase
	for ti, lt := range laid {
		offs := make([]uint64, len(lt.chunks))
		for ci, c := range lt.chunks {
			offs[ci] = pos
			pos += uint64(len(c))
		}
		chunkOffsetsAbs[ti] = offs
		for _, c := range lt.chunks {
			mdatContent = append(mdatContent, c...)
		}
	}

	moovBytes := buildMoov(chunkOffsetsAbs)
	mdatBytes := box("mdat", mdatContent)

	var out []byte
	if opts.MdatFirst {
		out = append(out, ftypBytes...)
		out = append(out, mdatBytes...)
		out = append(out, moovBytes...)
	} else {
		out = append(out, ftypBytes...)
		out = append(out, moovBytes...)
		out = append(out, mdatBytes...)
	}
	return out
}

// sampleBytes fabricates sz bytes of deterministic, non-zero filler so
// extracted elementary streams are distinguishable in tests.
func sampleBytes(sz uint32) []byte {
	b := make([]byte, sz)
	for i := range b {
		b[i] = byte(0xA0 + i%16)
	}
	return b
}

func box(typ string, content []byte) []byte {
	buf := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(content)))
	copy(buf[4:8], typ)
	copy(buf[8:], content)
	return buf
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func buildFtyp() []byte {
	content := append([]byte("M4A "), 0, 0, 0, 0)
	content = append(content, []byte("M4A ")...)
	content = append(content, []byte("mp42")...)
	content = append(content, []byte("isom")...)
	return box("ftyp", content)
}

var identityMatrix = []byte{
	0x00, 0x01, 0x00, 0x00, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0x00, 0x01, 0x00, 0x00, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0x40, 0x00, 0x00, 0x00,
}

func buildMvhd(tracks []Track) []byte {
	timescale := uint32(1000)
	if len(tracks) > 0 && tracks[0].Timescale != 0 {
		timescale = tracks[0].Timescale
	}
	content := make([]byte, 0, 100)
	content = append(content, 0, 0, 0, 0)
	content = append(content, 0, 0, 0, 0)
	content = append(content, 0, 0, 0, 0)
	content = append(content, be32(timescale)...)
	content = append(content, be32(timescale)...) // duration, arbitrary for fixtures
	content = append(content, 0x00, 0x01, 0x00, 0x00)
	content = append(content, 0x01, 0x00)
	content = append(content, 0, 0)
	content = append(content, make([]byte, 8)...)
	content = append(content, identityMatrix...)
	content = append(content, make([]byte, 24)...)
	content = append(content, be32(uint32(len(tracks)+1))...)
	return box("mvhd", content)
}

func buildTrak(trackID int, tr Track, chunkSizes []uint32, chunkOffsets []uint64) []byte {
	timescale := tr.Timescale
	if timescale == 0 {
		timescale = 1000
	}
	sampleCount := uint32(len(tr.Sizes))
	duration := sampleCount * 1024

	tkhdFlags := uint32(0x000006)
	if !tr.Disabled {
		tkhdFlags |= 0x000001
	}
	tkhdContent := make([]byte, 0, 92)
	tkhdContent = append(tkhdContent, be32(tkhdFlags)...)
	tkhdContent = append(tkhdContent, 0, 0, 0, 0)
	tkhdContent = append(tkhdContent, 0, 0, 0, 0)
	tkhdContent = append(tkhdContent, be32(uint32(trackID))...)
	tkhdContent = append(tkhdContent, 0, 0, 0, 0)
	tkhdContent = append(tkhdContent, be32(duration)...)
	tkhdContent = append(tkhdContent, make([]byte, 8)...)
	tkhdContent = append(tkhdContent, 0, 0)
	tkhdContent = append(tkhdContent, 0, 0)
	tkhdContent = append(tkhdContent, 0x01, 0x00)
	tkhdContent = append(tkhdContent, 0, 0)
	tkhdContent = append(tkhdContent, identityMatrix...)
	tkhdContent = append(tkhdContent, 0, 0, 0, 0)
	tkhdContent = append(tkhdContent, 0, 0, 0, 0)
	tkhd := box("tkhd", tkhdContent)

	mdhdContent := make([]byte, 0, 24)
	mdhdContent = append(mdhdContent, 0, 0, 0, 0)
	mdhdContent = append(mdhdContent, 0, 0, 0, 0)
	mdhdContent = append(mdhdContent, 0, 0, 0, 0)
	mdhdContent = append(mdhdContent, be32(timescale)...)
	mdhdContent = append(mdhdContent, be32(duration)...)
	mdhdContent = append(mdhdContent, 0x55, 0xc4)
	mdhdContent = append(mdhdContent, 0, 0)
	mdhd := box("mdhd", mdhdContent)

	handlerType := tr.HandlerType
	if handlerType == "" {
		handlerType = "soun"
	}
	hdlrContent := make([]byte, 4+4+4+12+1)
	copy(hdlrContent[8:12], handlerType)
	hdlr := box("hdlr", hdlrContent)

	smhd := box("smhd", make([]byte, 8))

	urlBox := box("url ", []byte{0, 0, 0, 1})
	drefContent := append([]byte{0, 0, 0, 0}, be32(1)...)
	drefContent = append(drefContent, urlBox...)
	dref := box("dref", drefContent)
	dinf := box("dinf", dref)

	stsdRaw := tr.StsdRaw
	if len(stsdRaw) == 0 {
		stsdRaw = DefaultAudioStsd()
	}
	stsd := box("stsd", stsdRaw)

	var stts []byte
	if tr.Delta != 0 {
		sttsContent := append(be32(0), be32(1)...) // version/flags, entry_count
		sttsContent = append(sttsContent, be32(sampleCount)...)
		sttsContent = append(sttsContent, be32(tr.Delta)...)
		stts = box("stts", sttsContent)
	}

	stscContent := append(be32(0), be32(uint32(len(chunkSizes)))...) // version/flags, entry_count
	for ci := range chunkSizes {
		spc := tr.SamplesPerChunk
		if spc == 0 {
			spc = sampleCount
		}
		remaining := sampleCount - uint32(ci)*spc
		n := spc
		if remaining < spc {
			n = remaining
		}
		stscContent = append(stscContent, be32(uint32(ci+1))...)
		stscContent = append(stscContent, be32(n)...)
		stscContent = append(stscContent, be32(1)...)
	}
	stsc := box("stsc", stscContent)

	var stszContent []byte
	stszContent = append(stszContent, 0, 0, 0, 0)
	stszContent = append(stszContent, be32(0)...)
	stszContent = append(stszContent, be32(sampleCount)...)
	for _, sz := range tr.Sizes {
		stszContent = append(stszContent, be32(sz)...)
	}
	stsz := box("stsz", stszContent)

	var stco []byte
	if tr.UseCo64 {
		content := append(be32(0), be32(uint32(len(chunkOffsets)))...)
		for _, o := range chunkOffsets {
			content = append(content, be64(o)...)
		}
		stco = box("co64", content)
	} else {
		content := append(be32(0), be32(uint32(len(chunkOffsets)))...)
		for _, o := range chunkOffsets {
			content = append(content, be32(uint32(o))...)
		}
		stco = box("stco", content)
	}

	var stblContent []byte
	stblContent = append(stblContent, stsd...)
	stblContent = append(stblContent, stts...)
	stblContent = append(stblContent, stsc...)
	stblContent = append(stblContent, stsz...)
	stblContent = append(stblContent, stco...)
	stbl := box("stbl", stblContent)

	minfContent := append([]byte{}, smhd...)
	minfContent = append(minfContent, dinf...)
	minfContent = append(minfContent, stbl...)
	minf := box("minf", minfContent)

	mdiaContent := append([]byte{}, mdhd...)
	mdiaContent = append(mdiaContent, hdlr...)
	mdiaContent = append(mdiaContent, minf...)
	mdia := box("mdia", mdiaContent)

	trakContent := append([]byte{}, tkhd...)
	trakContent = append(trakContent, mdia...)
	return box("trak", trakContent)
}

// DefaultAudioStsd builds a minimal, opaque AAC-like sample description
// table (one mp4a entry whose inner layout is never interpreted by
// pkg/mp4; it is only ever copied verbatim).
func DefaultAudioStsd() []byte {
	entry := make([]byte, 28)
	copy(entry[4:8], "mp4a")
	entry[15] = 1 // data_reference_index
	mp4a := box("mp4a", entry)
	content := append(be32(0), be32(1)...)
	content = append(content, mp4a...)
	return content
}
