package mp4

import (
	"testing"

	"github.com/monteslu/m4a-stems/internal/fixture"
	"github.com/stretchr/testify/require"
)

func firstTrak(t *testing.T, buf []byte) Atom {
	t.Helper()
	moov, found, err := topLevel(buf, TypeMoov)
	require.NoError(t, err)
	require.True(t, found)
	moov, err = Walk(buf, moov, 8)
	require.NoError(t, err)
	trak, ok := Find(moov, TypeTrak)
	require.True(t, ok)
	return trak
}

func TestDecodeSampleTableFixedSizes(t *testing.T) {
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 48000, Sizes: []uint32{200, 200, 200, 200}, SamplesPerChunk: 2, Delta: 1024},
		},
	})
	sm, err := DecodeSampleTable(buf, firstTrak(t, buf))
	require.NoError(t, err)
	require.Equal(t, uint32(48000), sm.Timescale)
	require.Equal(t, 4, sm.Sizes.Count())
	require.Len(t, sm.ChunkOffsets, 2)
	spc, err := sm.SamplesPerChunk(1)
	require.NoError(t, err)
	require.Equal(t, uint32(2), spc)
}

func TestDecodeSampleTableVariableSizes(t *testing.T) {
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{90, 120, 80, 150}, SamplesPerChunk: 1, Delta: 1024},
		},
	})
	sm, err := DecodeSampleTable(buf, firstTrak(t, buf))
	require.NoError(t, err)
	require.Equal(t, uint32(0), sm.Sizes.Fixed)
	require.Equal(t, 4, sm.Sizes.Count())
	require.Equal(t, uint32(120), sm.Sizes.Size(1))
	require.Len(t, sm.ChunkOffsets, 4)
}

func TestDecodeSampleTableMissingSttsFallsBackToRedesignedDefault(t *testing.T) {
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{10, 20, 30}, SamplesPerChunk: 3, Delta: 0},
		},
	})
	sm, err := DecodeSampleTable(buf, firstTrak(t, buf))
	require.NoError(t, err)
	require.Len(t, sm.Stts, 1)
	require.Equal(t, uint32(3), sm.Stts[0].Count)
	require.Equal(t, uint32(1024), sm.Stts[0].Delta)
}

func TestDecodeSampleTableCo64(t *testing.T) {
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{10, 20, 30, 40}, SamplesPerChunk: 2, Delta: 1024, UseCo64: true},
		},
	})
	sm, err := DecodeSampleTable(buf, firstTrak(t, buf))
	require.NoError(t, err)
	require.Len(t, sm.ChunkOffsets, 2)
}

func TestDecodeSampleTableMissingStsdIsError(t *testing.T) {
	buf := oneTrackFixture()
	trak := firstTrak(t, buf)
	// Drop stsd from the walked view of trak/mdia/minf/stbl.
	stbl := &trak.Children[1].Children[2].Children[2]
	require.Equal(t, TypeStbl, stbl.Type)
	require.Equal(t, TypeStsd, stbl.Children[0].Type)
	stbl.Children = stbl.Children[1:]

	_, err := DecodeSampleTable(buf, trak)
	require.Error(t, err)
	var missing *MissingBoxError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "stsd", missing.Box)
}

func TestDecodeStscRejectsNonIncreasingFirstChunk(t *testing.T) {
	p := make([]byte, 8+2*12)
	p[7] = 2 // entry_count = 2
	// entry 0: first_chunk = 2
	p[11] = 2
	p[15] = 1
	p[19] = 1
	// entry 1: first_chunk = 1 (not strictly increasing)
	p[23] = 1
	p[27] = 1
	p[31] = 1
	_, err := decodeStsc(p)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidContainer)
}
