// Package lyrics defines the typed JSON document stored in the
// com.stems/kara free-form atom (see pkg/mp4's
// WriteLyricsJSON/ReadLyricsJSON): time-synced, optionally
// word-level and multi-singer lyrics for karaoke playback.
package lyrics

import (
	"github.com/segmentio/encoding/json"
)

// Document is the root of the kara atom's JSON payload.
type Document struct {
	Audio   AudioInfo `json:"audio"`
	Timing  Timing    `json:"timing"`
	Lines   []Line    `json:"lines"`
	Singers []Singer  `json:"singers,omitempty"`
}

// AudioInfo names which rendered audio this lyrics document was
// generated against, so a consumer can tell whether it still lines up
// with the mixdown it ships alongside.
type AudioInfo struct {
	Profile             string   `json:"profile,omitempty"`
	EncoderDelaySamples int      `json:"encoder_delay_samples,omitempty"`
	Sources             []string `json:"sources,omitempty"`
	Presets             []string `json:"presets,omitempty"`
}

// Timing carries a global offset (seconds) applied to every line/word
// start and end, to correct for encoder priming delay without
// rewriting every timestamp.
type Timing struct {
	OffsetSec float64 `json:"offset_sec"`
}

// Line is one lyric line with a start/end time window in seconds from
// the start of the track, optionally broken into word-level timings.
type Line struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Words    []Word  `json:"words,omitempty"`
	SingerID string  `json:"singer_id,omitempty"`
}

// Word is one word-level timing within a Line, present only when the
// source supports word-level alignment.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Singer names one of possibly several vocalists a line can be
// attributed to (for duet/group tracks).
type Singer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"` // optional UI hint, e.g. "#3366ff"
}

// Marshal serializes doc to its canonical JSON form.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal decodes a Document from raw JSON. Unknown fields are
// ignored, so documents written by newer tooling still parse.
func Unmarshal(b []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(b, &d)
	return d, err
}

// ActiveAt returns the line active at timeSec (after applying the
// document's timing offset), if any.
func (d Document) ActiveAt(timeSec float64) (Line, bool) {
	t := timeSec - d.Timing.OffsetSec
	for _, l := range d.Lines {
		if t >= l.Start && t < l.End {
			return l, true
		}
	}
	return Line{}, false
}
