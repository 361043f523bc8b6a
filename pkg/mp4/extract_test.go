package mp4

import (
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"

	"github.com/monteslu/m4a-stems/internal/fixture"
)

func TestExtractTrackProducesPlayableStandaloneFile(t *testing.T) {
	buf := multiTrackFixture()
	out, err := ExtractTrack(buf, 1)
	require.NoError(t, err)

	top, err := ParseTree(out, 8)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "ftyp", top[0].Type.String())
	require.Equal(t, "moov", top[1].Type.String())
	require.Equal(t, "mdat", top[2].Type.String())

	mdat := top[2]
	require.Equal(t, top[0].TotalSize+top[1].TotalSize, mdat.Offset)

	// The single synthesized chunk must point just past the mdat header.
	sm, err := DecodeSampleTable(out, tracksAt(t, out, 0))
	require.NoError(t, err)
	require.Equal(t, []uint64{mdat.Offset + 8}, sm.ChunkOffsets)
}

func TestExtractTrackPreservesElementaryStreamBytes(t *testing.T) {
	buf := multiTrackFixture()
	trak := tracksAt(t, buf, 1)
	sm, err := DecodeSampleTable(buf, trak)
	require.NoError(t, err)
	wantStream, _, err := gatherElementaryStream(buf, sm)
	require.NoError(t, err)

	extracted, err := ExtractTrack(buf, 1)
	require.NoError(t, err)
	extractedTrak := tracksAt(t, extracted, 0)
	extractedSM, err := DecodeSampleTable(extracted, extractedTrak)
	require.NoError(t, err)
	gotStream, _, err := gatherElementaryStream(extracted, extractedSM)
	require.NoError(t, err)

	require.Equal(t, wantStream, gotStream)
}

func TestExtractTrackRejectsOutOfRangeIndex(t *testing.T) {
	buf := oneTrackFixture()
	_, err := ExtractTrack(buf, 9)
	require.Error(t, err)
	var notFound *TrackNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestExtractAllTracksSkipsShortTracks(t *testing.T) {
	sizes := make([]uint32, 5)
	for i := range sizes {
		sizes[i] = 100
	}
	longSizes := make([]uint32, 150)
	for i := range longSizes {
		longSizes[i] = 80
	}
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: sizes, SamplesPerChunk: 5, Delta: 1024},     // too short, skipped
			{Timescale: 44100, Sizes: longSizes, SamplesPerChunk: 10, Delta: 1024}, // extracted
		},
	})

	out, err := ExtractAllTracks(buf, logger.New())
	require.NoError(t, err)
	require.Len(t, out, 1)

	infos, err := GetTrackInfo(buf)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, 5, infos[0].SampleCount)
	require.Equal(t, 150, infos[1].SampleCount)
}

func TestGetTrackInfoReportsDuration(t *testing.T) {
	buf := oneTrackFixture()
	infos, err := GetTrackInfo(buf)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, uint32(44100), infos[0].Timescale)
	require.Greater(t, infos[0].DurationSec, 0.0)
}
