package stemmeta

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/require"
)

func TestDocumentMarshalUnmarshalRoundTrips(t *testing.T) {
	doc := Document{
		Version: 1,
		MasteringDSP: &MasteringDSP{
			Compressor: &CompressorSettings{
				ThresholdDB: -18,
				Ratio:       4,
				AttackMs:    pointerutil.Float64(5),
				ReleaseMs:   pointerutil.Float64(50),
			},
			Limiter: &LimiterSettings{CeilingDB: -1, ReleaseMs: pointerutil.Float64(10)},
		},
		Stems: []Stem{
			{Name: "vocals", Color: "#e07a5f"},
			{Name: "drums", Color: "#3d405b"},
		},
	}

	raw, err := doc.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestDocumentMarshalOmitsAbsentAttackRelease(t *testing.T) {
	doc := Document{
		Version: 1,
		MasteringDSP: &MasteringDSP{
			Compressor: &CompressorSettings{ThresholdDB: -12, Ratio: 2},
		},
		Stems: []Stem{{Name: "bass", Color: "#81b29a"}},
	}

	raw, err := doc.Marshal()
	require.NoError(t, err)
	require.NotContains(t, string(raw), "attack_ms")

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Nil(t, got.MasteringDSP.Compressor.AttackMs)
}

func TestStemByNameFindsFirstMatch(t *testing.T) {
	doc := Document{Stems: []Stem{
		{Name: "vocals", Color: "#e07a5f"},
		{Name: "other", Color: "#f2cc8f"},
	}}

	stem, ok := doc.StemByName("other")
	require.True(t, ok)
	require.Equal(t, "#f2cc8f", stem.Color)

	_, ok = doc.StemByName("click")
	require.False(t, ok)
}
