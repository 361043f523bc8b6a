package mp4

import (
	"testing"

	"github.com/monteslu/m4a-stems/internal/fixture"
	"github.com/stretchr/testify/require"
)

func multiTrackFixture() []byte {
	return fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{100, 110, 90, 105, 95, 120}, SamplesPerChunk: 2, Delta: 1024},
			{Timescale: 44100, Sizes: []uint32{80, 85, 90}, SamplesPerChunk: 3, Delta: 1024},
		},
	})
}

func elementaryStreamsEqual(t *testing.T, before, after []byte, trackIndex int) {
	t.Helper()
	sm1, err := DecodeSampleTable(before, tracksAt(t, before, trackIndex))
	require.NoError(t, err)
	sm2, err := DecodeSampleTable(after, tracksAt(t, after, trackIndex))
	require.NoError(t, err)
	es1, _, err := gatherElementaryStream(before, sm1)
	require.NoError(t, err)
	es2, _, err := gatherElementaryStream(after, sm2)
	require.NoError(t, err)
	require.Equal(t, es1, es2)
}

func tracksAt(t *testing.T, buf []byte, idx int) Atom {
	t.Helper()
	traks, err := tracksOf(buf)
	require.NoError(t, err)
	require.Greater(t, len(traks), idx)
	return traks[idx]
}

func TestPutIlstAtomCreatesMissingIntermediates(t *testing.T) {
	buf := oneTrackFixture()
	out, err := WriteItunesText(buf, AtomTitle, "Hello Stems")
	require.NoError(t, err)

	val, ok, err := ReadIlstAtom(out, IlstKey{Type: AtomTitle})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hello Stems", string(val))

	elementaryStreamsEqual(t, buf, out, 0)
}

func TestPutIlstAtomReplacesExistingValue(t *testing.T) {
	buf := oneTrackFixture()
	buf, err := WriteItunesText(buf, AtomTitle, "First")
	require.NoError(t, err)
	buf, err = WriteItunesText(buf, AtomTitle, "Second")
	require.NoError(t, err)

	val, ok, err := ReadIlstAtom(buf, IlstKey{Type: AtomTitle})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Second", string(val))

	moov, found, err := topLevel(buf, TypeMoov)
	require.NoError(t, err)
	require.True(t, found)
	moov, err = Walk(buf, moov, 6)
	require.NoError(t, err)
	ilst, ok := FindPath(moov, TypeUdta, TypeMeta, TypeIlst)
	require.True(t, ok)
	require.Len(t, FindAll(ilst, AtomTitle), 1)
}

func TestFreeformAtomsAreUniquePerMeanName(t *testing.T) {
	buf := oneTrackFixture()
	buf, err := WriteFreeform(buf, "com.stemkit", "take", DataTypeUTF8, []byte("1"))
	require.NoError(t, err)
	buf, err = WriteFreeform(buf, "com.stemkit", "take", DataTypeUTF8, []byte("2"))
	require.NoError(t, err)

	val, ok, err := ReadFreeform(buf, "com.stemkit", "take")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", string(val))

	moov, found, err := topLevel(buf, TypeMoov)
	require.NoError(t, err)
	require.True(t, found)
	moov, err = Walk(buf, moov, 6)
	require.NoError(t, err)
	ilst, ok := FindPath(moov, TypeUdta, TypeMeta, TypeIlst)
	require.True(t, ok)
	require.Len(t, FindAll(ilst, TypeFree), 1)
}

func TestRemoveIlstAtomIsNoopWhenAbsent(t *testing.T) {
	buf := oneTrackFixture()
	out, err := RemoveIlstAtom(buf, IlstKey{Type: AtomTitle})
	require.NoError(t, err)
	require.Equal(t, buf, out)
}

func TestRemoveIlstAtomDeletesExisting(t *testing.T) {
	buf := oneTrackFixture()
	buf, err := WriteItunesText(buf, AtomTitle, "Gone Soon")
	require.NoError(t, err)
	buf, err = RemoveIlstAtom(buf, IlstKey{Type: AtomTitle})
	require.NoError(t, err)

	_, ok, err := ReadIlstAtom(buf, IlstKey{Type: AtomTitle})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutStemAtomRoundTrips(t *testing.T) {
	buf := oneTrackFixture()
	out, err := PutStemAtom(buf, []byte(`{"stems":[]}`))
	require.NoError(t, err)

	got, ok, err := ReadStemAtom(out)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"stems":[]}`, string(got))
}

func TestSetTrackEnabledClearsFlagBit(t *testing.T) {
	buf := multiTrackFixture()
	out, err := SetTrackEnabled(buf, 1, false)
	require.NoError(t, err)

	traks, err := tracksOf(out)
	require.NoError(t, err)
	tkhd, ok := Find(traks[1], TypeTkhd)
	require.True(t, ok)
	flags := beUint32(Payload(out, tkhd)[0:4])
	require.Zero(t, flags&0x000001)

	elementaryStreamsEqual(t, buf, out, 0)
	elementaryStreamsEqual(t, buf, out, 1)
}

func TestSetTrackEnabledRejectsOutOfRangeIndex(t *testing.T) {
	buf := oneTrackFixture()
	_, err := SetTrackEnabled(buf, 5, false)
	require.Error(t, err)
	var notFound *TrackNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMutationPreservesAtomSizeConsistency(t *testing.T) {
	buf := multiTrackFixture()
	out, err := WriteItunesText(buf, AtomArtist, "A Fairly Long Artist Name For Size Testing")
	require.NoError(t, err)

	top, err := ParseTree(out, 8)
	require.NoError(t, err)
	for _, a := range top {
		require.LessOrEqual(t, a.Offset+a.TotalSize, uint64(len(out)))
	}
}
