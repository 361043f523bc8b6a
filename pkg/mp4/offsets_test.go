package mp4

import (
	"testing"

	"github.com/monteslu/m4a-stems/internal/fixture"
	"github.com/stretchr/testify/require"
)

// chunkOffsetsOf decodes every track's chunk offsets in buf, in trak order.
func chunkOffsetsOf(t *testing.T, buf []byte) [][]uint64 {
	t.Helper()
	traks, err := tracksOf(buf)
	require.NoError(t, err)
	out := make([][]uint64, len(traks))
	for i, trak := range traks {
		sm, err := DecodeSampleTable(buf, trak)
		require.NoError(t, err)
		out[i] = sm.ChunkOffsets
	}
	return out
}

func TestRewriteChunkOffsetsShiftsEntriesAfterMoovGrows(t *testing.T) {
	buf := multiTrackFixture()
	before := chunkOffsetsOf(t, buf)

	out, err := WriteItunesText(buf, AtomAlbum, "An Album Title Long Enough To Grow Moov By Several Dozen Bytes")
	require.NoError(t, err)
	after := chunkOffsetsOf(t, out)

	moovBefore, found, err := topLevel(buf, TypeMoov)
	require.NoError(t, err)
	require.True(t, found)
	moovAfter, found, err := topLevel(out, TypeMoov)
	require.NoError(t, err)
	require.True(t, found)
	delta := int64(moovAfter.TotalSize) - int64(moovBefore.TotalSize)
	require.Greater(t, delta, int64(0))

	for trackIdx := range before {
		require.Len(t, after[trackIdx], len(before[trackIdx]))
		for i, offBefore := range before[trackIdx] {
			require.Equal(t, offBefore+uint64(delta), after[trackIdx][i])
		}
	}
}

func TestRewriteChunkOffsetsLeavesMdatFirstLayoutUntouched(t *testing.T) {
	buf := fixture.Build(fixture.Options{
		MdatFirst: true,
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{100, 110, 90}, SamplesPerChunk: 1, Delta: 1024},
		},
	})
	before := chunkOffsetsOf(t, buf)

	out, err := WriteItunesText(buf, AtomGenre, "Electronic")
	require.NoError(t, err)
	after := chunkOffsetsOf(t, out)

	require.Equal(t, before, after)
}

func TestRewriteChunkOffsetsRejectsUint32Overflow(t *testing.T) {
	content := append([]byte{0, 0, 0, 0}, 0, 0, 0, 1) // version/flags, entry_count=1
	content = append(content, 0xFF, 0xFF, 0xFF, 0xF0) // entry near the uint32 ceiling
	stcoBox := make([]byte, 8+len(content))
	stcoBox[3] = byte(8 + len(content))
	copy(stcoBox[4:8], "stco")
	copy(stcoBox[8:], content)

	stco := Atom{Type: TypeStco, Offset: 0, TotalSize: uint64(len(stcoBox)), HeaderSize: 8}
	err := RewriteChunkOffsets(stcoBox, stco, 0, 0x100)
	require.Error(t, err)
	var overflow *OffsetOverflowError
	require.ErrorAs(t, err, &overflow)
}

func TestRewriteChunkOffsetsMonotonicWithinTrack(t *testing.T) {
	buf := multiTrackFixture()
	out, err := WriteItunesText(buf, AtomTitle, "Monotonic After Rewrite")
	require.NoError(t, err)
	for _, offs := range chunkOffsetsOf(t, out) {
		for i := 1; i < len(offs); i++ {
			require.Greater(t, offs[i], offs[i-1])
		}
	}
}
