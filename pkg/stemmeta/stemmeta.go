// Package stemmeta defines the typed JSON document stored in a
// container's `stem` atom (see pkg/mp4's WriteStemJSON/ReadStemAtom):
// the NI-Stems-style mastering chain and per-stem display metadata that
// rides alongside the isolated audio tracks an M4A karaoke-stems file
// carries.
package stemmeta

import (
	"github.com/segmentio/encoding/json"
)

// Document is the root of the `stem` atom's JSON payload.
type Document struct {
	Version      int           `json:"version"`
	MasteringDSP *MasteringDSP `json:"mastering_dsp,omitempty"`
	Stems        []Stem        `json:"stems"`
}

// MasteringDSP captures the compressor and limiter settings applied to
// the combined mix, so a player can reproduce (or bypass) them.
type MasteringDSP struct {
	Compressor *CompressorSettings `json:"compressor,omitempty"`
	Limiter    *LimiterSettings    `json:"limiter,omitempty"`
}

// CompressorSettings is the mastering chain's compressor stage.
// AttackMs/ReleaseMs are pointers (rather than float64 with omitempty) so
// an explicit 0ms can be distinguished from "not specified, use the
// mastering tool's default."
type CompressorSettings struct {
	ThresholdDB float64  `json:"threshold_db"`
	Ratio       float64  `json:"ratio"`
	AttackMs    *float64 `json:"attack_ms,omitempty"`
	ReleaseMs   *float64 `json:"release_ms,omitempty"`
}

// LimiterSettings is the mastering chain's final limiter stage.
type LimiterSettings struct {
	CeilingDB float64  `json:"ceiling_db"`
	ReleaseMs *float64 `json:"release_ms,omitempty"`
}

// Stem describes one isolated track's display identity in the ordered
// stems array.
type Stem struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Marshal serializes doc to its canonical JSON form.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal decodes a Document from raw JSON, as read back from a
// `stem` atom. Unknown fields are ignored, so documents written by newer
// or third-party NI Stems tooling still parse.
func Unmarshal(b []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(b, &d)
	return d, err
}

// StemByName returns the first stem with the given name, or false.
func (d Document) StemByName(name string) (Stem, bool) {
	for _, s := range d.Stems {
		if s.Name == name {
			return s, true
		}
	}
	return Stem{}, false
}
