package stemfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"

	"github.com/monteslu/m4a-stems/internal/fixture"
	"github.com/monteslu/m4a-stems/pkg/mp4"
)

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{100, 110, 90, 105, 95}, SamplesPerChunk: 2, Delta: 1024},
		},
	})
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0600))
	return path
}

func TestMutateAppliesChangeAtomically(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "input.m4a")

	err := Mutate(path, func(b []byte) ([]byte, error) {
		return mp4.WriteItunesText(b, mp4.AtomTitle, "Mutated Title")
	})
	require.NoError(t, err)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	val, ok, err := mp4.ReadIlstAtom(out, mp4.IlstKey{Type: mp4.AtomTitle})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Mutated Title", string(val))
}

func TestMutateWithBackupPreservesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "input.m4a")
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	err = MutateWithBackup(path, ".bak", func(b []byte) ([]byte, error) {
		return mp4.WriteItunesText(b, mp4.AtomArtist, "New Artist")
	})
	require.NoError(t, err)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	require.Equal(t, original, backup)

	mutated, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEqual(t, original, mutated)
}

func TestMutatePropagatesMutatorError(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "input.m4a")

	boom := os.ErrInvalid
	err := Mutate(path, func(b []byte) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	untouched, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, untouched)
}

func TestBatchExtractWritesOneFilePerQualifyingTrack(t *testing.T) {
	dir := t.TempDir()
	longSizes := make([]uint32, 150)
	for i := range longSizes {
		longSizes[i] = 80
	}
	buf := fixture.Build(fixture.Options{
		Tracks: []fixture.Track{
			{Timescale: 44100, Sizes: []uint32{1, 2, 3}, SamplesPerChunk: 3, Delta: 1024}, // too short
			{Timescale: 44100, Sizes: longSizes, SamplesPerChunk: 10, Delta: 1024},
		},
	})
	srcPath := filepath.Join(dir, "source.m4a")
	require.NoError(t, os.WriteFile(srcPath, buf, 0600))

	outDir := filepath.Join(dir, "out")
	paths, err := BatchExtract(context.Background(), srcPath, outDir, 2, logger.New())
	require.NoError(t, err)
	require.Len(t, paths, 1)

	info, err := os.Stat(paths[0])
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
