package lyrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentMarshalUnmarshalRoundTrips(t *testing.T) {
	doc := Document{
		Audio:   AudioInfo{Profile: "vocals-isolated", EncoderDelaySamples: 2112, Sources: []string{"stem:vocals"}},
		Timing:  Timing{OffsetSec: 0.05},
		Singers: []Singer{{ID: "s1", Name: "Lead", Color: "#3366ff"}},
		Lines: []Line{
			{Start: 0, End: 2, Text: "First line", SingerID: "s1", Words: []Word{
				{Start: 0, End: 0.6, Text: "First"},
				{Start: 0.6, End: 2, Text: "line"},
			}},
			{Start: 2, End: 4, Text: "Second line", SingerID: "s1"},
		},
	}

	raw, err := doc.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestUnmarshalToleratesUnknownFields(t *testing.T) {
	raw := []byte(`{"lines":[{"start":0.5,"end":2.0,"text":"hello","future_field":true}],"future_top_level":"x"}`)

	doc, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	require.Equal(t, "hello", doc.Lines[0].Text)
}

func TestActiveAtFindsLineCoveringTime(t *testing.T) {
	doc := Document{Lines: []Line{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2, Text: "b"},
	}}

	line, ok := doc.ActiveAt(1.5)
	require.True(t, ok)
	require.Equal(t, "b", line.Text)

	_, ok = doc.ActiveAt(5)
	require.False(t, ok)
}

func TestActiveAtAppliesTimingOffset(t *testing.T) {
	doc := Document{
		Timing: Timing{OffsetSec: 1},
		Lines:  []Line{{Start: 0, End: 1, Text: "a"}},
	}

	// Document says "a" spans [0,1) relative to the lyric source, but the
	// track itself starts OffsetSec later, so wall-clock 0.5s is before
	// the line's track-relative window opens.
	_, ok := doc.ActiveAt(0.5)
	require.False(t, ok)

	line, ok := doc.ActiveAt(1.5)
	require.True(t, ok)
	require.Equal(t, "a", line.Text)
}
