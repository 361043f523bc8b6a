package mp4

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// minAudioSampleCount is the heuristic threshold ExtractAllTracks uses to
// skip non-audio/metadata tracks (e.g. chapter text tracks).
const minAudioSampleCount = 100

// TrackInfo summarizes one track for GetTrackInfo. Error is set, and
// the numeric fields left zero, when the track's sample table could not
// be decoded.
type TrackInfo struct {
	Index       int
	SampleCount int
	DurationSec float64
	Timescale   uint32
	Error       string
}

// GetTrackInfo reports per-track sample counts and durations for every
// trak under moov. A per-track decode failure is recorded in that
// track's Error field rather than aborting the whole call.
func GetTrackInfo(buf []byte) ([]TrackInfo, error) {
	traks, err := tracksOf(buf)
	if err != nil {
		return nil, err
	}

	infos := make([]TrackInfo, len(traks))
	for i, trak := range traks {
		infos[i].Index = i
		sm, err := DecodeSampleTable(buf, trak)
		if err != nil {
			infos[i].Error = err.Error()
			continue
		}
		infos[i].SampleCount = sm.Sizes.Count()
		infos[i].Timescale = sm.Timescale
		if sm.Timescale != 0 {
			infos[i].DurationSec = float64(sm.Duration) / float64(sm.Timescale)
		}
	}
	return infos, nil
}

// tracksOf returns every trak atom under the file's single moov, fully
// walked.
func tracksOf(buf []byte) ([]Atom, error) {
	moov, found, err := topLevel(buf, TypeMoov)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &MissingBoxError{Box: "moov"}
	}
	moov, err = Walk(buf, moov, 8)
	if err != nil {
		return nil, err
	}
	return FindAll(moov, TypeTrak), nil
}

// ExtractTrack gathers trackIndex's (0-based) elementary stream and
// synthesizes a standalone, playable MP4 around it: a fresh ftyp/moov
// pair describing a single one-chunk track, then an mdat holding the
// copied stream bytes.
func ExtractTrack(buf []byte, trackIndex int) ([]byte, error) {
	traks, err := tracksOf(buf)
	if err != nil {
		return nil, err
	}
	if trackIndex < 0 || trackIndex >= len(traks) {
		return nil, &TrackNotFoundError{Index: trackIndex, Available: len(traks)}
	}
	sm, err := DecodeSampleTable(buf, traks[trackIndex])
	if err != nil {
		return nil, err
	}
	return synthesizeTrackMP4(buf, sm)
}

// ExtractAllTracks applies ExtractTrack to every track whose sample map
// reports at least 100 samples, filtering out non-audio/metadata tracks
// heuristically. Per-track failures are logged and skipped rather than
// aborting the whole call.
func ExtractAllTracks(buf []byte, log logger.Logger) ([][]byte, error) {
	traks, err := tracksOf(buf)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	for i, trak := range traks {
		sm, err := DecodeSampleTable(buf, trak)
		if err != nil {
			log.Warn("skipping track: sample table decode failed", logger.Data{"track_index": i, "error": err.Error()})
			continue
		}
		if sm.Sizes.Count() < minAudioSampleCount {
			log.Info("skipping track: below minimum sample count", logger.Data{"track_index": i, "sample_count": sm.Sizes.Count()})
			continue
		}
		mp4Bytes, err := synthesizeTrackMP4(buf, sm)
		if err != nil {
			log.Warn("skipping track: extraction failed", logger.Data{"track_index": i, "error": err.Error()})
			continue
		}
		out = append(out, mp4Bytes)
	}
	return out, nil
}

// gatherElementaryStream concatenates, in sample order, the codec-
// specific bytes for every sample described by sm.
func gatherElementaryStream(buf []byte, sm SampleMap) ([]byte, int, error) {
	var out []byte
	sampleIdx := 0
	for chunkIdx1 := 1; chunkIdx1 <= len(sm.ChunkOffsets); chunkIdx1++ {
		spc, err := sm.SamplesPerChunk(uint32(chunkIdx1))
		if err != nil {
			return nil, 0, err
		}
		pos := sm.ChunkOffsets[chunkIdx1-1]
		for i := uint32(0); i < spc; i++ {
			size := sm.Sizes.Size(sampleIdx)
			if pos+uint64(size) > uint64(len(buf)) {
				return nil, 0, errors.Wrapf(ErrTruncated, "sample %d at offset %d, size %d exceeds file length", sampleIdx, pos, size)
			}
			out = append(out, buf[pos:pos+uint64(size)]...)
			pos += uint64(size)
			sampleIdx++
		}
	}
	return out, sampleIdx, nil
}

// synthesizeTrackMP4 builds a complete ftyp/moov/mdat file around sm's
// elementary stream.
func synthesizeTrackMP4(buf []byte, sm SampleMap) ([]byte, error) {
	es, totalSamples, err := gatherElementaryStream(buf, sm)
	if err != nil {
		return nil, err
	}

	ftypBytes := buildFtyp()
	moovBytes, stcoEntryOffset := buildSyntheticMoov(sm, uint32(totalSamples))

	finalChunkOffset := uint64(len(ftypBytes)) + uint64(len(moovBytes)) + 8
	binary.BigEndian.PutUint32(moovBytes[stcoEntryOffset:stcoEntryOffset+4], uint32(finalChunkOffset))

	out := make([]byte, 0, len(ftypBytes)+len(moovBytes)+8+len(es))
	out = append(out, ftypBytes...)
	out = append(out, moovBytes...)
	out = append(out, buildBox(TypeMdat, es)...)
	return out, nil
}

func buildFtyp() []byte {
	content := append([]byte("M4A "), 0, 0, 0, 0) // major brand + minor version
	content = append(content, []byte("M4A ")...)
	content = append(content, []byte("mp42")...)
	content = append(content, []byte("isom")...)
	return buildBox(TypeFtyp, content)
}

var identityMatrix = []byte{
	0x00, 0x01, 0x00, 0x00, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0x00, 0x01, 0x00, 0x00, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0x40, 0x00, 0x00, 0x00,
}

func buildMvhd(sm SampleMap) []byte {
	content := make([]byte, 0, 100)
	content = append(content, 0, 0, 0, 0) // version/flags
	content = append(content, 0, 0, 0, 0) // creation time
	content = append(content, 0, 0, 0, 0) // modification time
	content = append(content, beBytes32(sm.Timescale)...)
	content = append(content, beBytes32(uint32(sm.Duration))...)
	content = append(content, 0x00, 0x01, 0x00, 0x00) // rate, 1.0
	content = append(content, 0x01, 0x00)             // volume, 1.0
	content = append(content, 0, 0)                   // reserved
	content = append(content, 0, 0, 0, 0, 0, 0, 0, 0)  // reserved[2]
	content = append(content, identityMatrix...)
	content = append(content, make([]byte, 24)...) // pre_defined[6]
	content = append(content, beBytes32(2)...)      // next_track_ID
	return buildBox(TypeMvhd, content)
}

func buildTkhd(sm SampleMap, enabled bool) []byte {
	var flags uint32 = 0x000006 // in_movie | in_preview
	if enabled {
		flags |= 0x000001
	}
	content := make([]byte, 0, 92)
	content = append(content, beBytes32(flags)...) // version(0) packed with flags
	content = append(content, 0, 0, 0, 0)           // creation time
	content = append(content, 0, 0, 0, 0)           // modification time
	content = append(content, beBytes32(1)...)      // track_ID
	content = append(content, 0, 0, 0, 0)           // reserved
	content = append(content, beBytes32(uint32(sm.Duration))...)
	content = append(content, make([]byte, 8)...) // reserved[2]
	content = append(content, 0, 0)               // layer
	content = append(content, 0, 0)               // alternate_group
	content = append(content, 0x01, 0x00)         // volume, 1.0
	content = append(content, 0, 0)               // reserved
	content = append(content, identityMatrix...)
	content = append(content, 0, 0, 0, 0) // width
	content = append(content, 0, 0, 0, 0) // height
	return buildBox(TypeTkhd, content)
}

func buildMediaHdlr(handlerType string) []byte {
	content := make([]byte, 4+4+4+12+1)
	copy(content[8:12], handlerType)
	return buildBox(TypeHdlr, content)
}

func buildSyntheticMdhd(sm SampleMap) []byte {
	content := make([]byte, 0, 24)
	content = append(content, 0, 0, 0, 0) // version/flags
	content = append(content, 0, 0, 0, 0) // creation time
	content = append(content, 0, 0, 0, 0) // modification time
	content = append(content, beBytes32(sm.Timescale)...)
	content = append(content, beBytes32(uint32(sm.Duration))...)
	content = append(content, 0x55, 0xc4) // language "und"
	content = append(content, 0, 0)       // pre_defined
	return buildBox(TypeMdhd, content)
}

func buildSmhd() []byte {
	return buildBox(TypeSmhd, make([]byte, 8))
}

func buildDinf() []byte {
	urlBox := buildBox(TypeURL, []byte{0, 0, 0, 1}) // version0, flags=self-contained
	drefContent := append([]byte{0, 0, 0, 0}, beBytes32(1)...)
	drefContent = append(drefContent, urlBox...)
	dref := buildBox(TypeDref, drefContent)
	return buildBox(TypeDinf, dref)
}

// buildStts re-emits the source's actual (count, delta) pairs verbatim.
func buildStts(entries []SttsEntry) []byte {
	content := beBytes32(0) // version/flags
	content = append(content, beBytes32(uint32(len(entries)))...)
	for _, e := range entries {
		content = append(content, beBytes32(e.Count)...)
		content = append(content, beBytes32(e.Delta)...)
	}
	return buildBox(TypeStts, content)
}

// buildStscSingle emits the collapsed single-chunk table: one entry
// (first_chunk=1, samples_per_chunk=total, desc=1). Collapsing to one
// chunk avoids translating the source's multi-chunk layout.
func buildStscSingle(totalSamples uint32) []byte {
	content := beBytes32(0) // version/flags
	content = append(content, beBytes32(1)...)
	content = append(content, beBytes32(1)...)
	content = append(content, beBytes32(totalSamples)...)
	content = append(content, beBytes32(1)...)
	return buildBox(TypeStsc, content)
}

func buildStsz(sizes SampleSizes) []byte {
	content := beBytes32(0) // version/flags
	if sizes.Fixed != 0 {
		content = append(content, beBytes32(sizes.Fixed)...)
		content = append(content, beBytes32(uint32(sizes.Count()))...)
		return buildBox(TypeStsz, content)
	}
	content = append(content, beBytes32(0)...)
	content = append(content, beBytes32(uint32(len(sizes.Variable)))...)
	for _, s := range sizes.Variable {
		content = append(content, beBytes32(s)...)
	}
	return buildBox(TypeStsz, content)
}

// buildStcoPlaceholder emits a single-entry stco whose value is patched
// in by the caller once the surrounding moov's final size is known.
func buildStcoPlaceholder() []byte {
	content := beBytes32(0) // version/flags
	content = append(content, beBytes32(1)...)
	content = append(content, beBytes32(0)...)
	return buildBox(TypeStco, content)
}

// buildSyntheticMoov assembles the full moov box for an extracted track
// and returns the absolute byte offset (within the returned slice) of
// the stco placeholder entry, so the caller can patch it once ftyp+moov
// sizes are known.
func buildSyntheticMoov(sm SampleMap, totalSamples uint32) ([]byte, int) {
	stsd := buildBox(TypeStsd, sm.StsdRaw)
	stts := buildStts(sm.Stts)
	stsc := buildStscSingle(totalSamples)
	stsz := buildStsz(sm.Sizes)
	stco := buildStcoPlaceholder()

	stblContent := append([]byte{}, stsd...)
	stblContent = append(stblContent, stts...)
	stblContent = append(stblContent, stsc...)
	stblContent = append(stblContent, stsz...)
	stcoOffsetInStbl := len(stblContent)
	stblContent = append(stblContent, stco...)
	stblBox := buildBox(TypeStbl, stblContent)

	minfContent := append([]byte{}, buildSmhd()...)
	minfContent = append(minfContent, buildDinf()...)
	stcoOffsetInMinf := len(minfContent) + (len(stblBox) - len(stblContent)) + stcoOffsetInStbl
	minfContent = append(minfContent, stblBox...)
	minfBox := buildBox(TypeMinf, minfContent)

	mdiaContent := append([]byte{}, buildSyntheticMdhd(sm)...)
	mdiaContent = append(mdiaContent, buildMediaHdlr("soun")...)
	stcoOffsetInMdia := len(mdiaContent) + (len(minfBox) - len(minfContent)) + stcoOffsetInMinf
	mdiaContent = append(mdiaContent, minfBox...)
	mdiaBox := buildBox(TypeMdia, mdiaContent)

	trakContent := append([]byte{}, buildTkhd(sm, true)...)
	stcoOffsetInTrak := len(trakContent) + (len(mdiaBox) - len(mdiaContent)) + stcoOffsetInMdia
	trakContent = append(trakContent, mdiaBox...)
	trakBox := buildBox(TypeTrak, trakContent)

	moovContent := append([]byte{}, buildMvhd(sm)...)
	stcoOffsetInMoov := len(moovContent) + (len(trakBox) - len(trakContent)) + stcoOffsetInTrak
	moovContent = append(moovContent, trakBox...)
	moovBox := buildBox(TypeMoov, moovContent)

	headerDelta := len(moovBox) - len(moovContent)
	stcoEntryOffsetInMoovBox := headerDelta + stcoOffsetInMoov + 16 // past stco's header, version/flags, and entry_count

	return moovBox, stcoEntryOffsetInMoovBox
}

func beBytes32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
