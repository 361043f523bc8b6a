package mp4

import (
	"encoding/binary"
	"fmt"
)

// Free-form atom mean/name pairs this engine owns: lyrics/pitch/onsets
// live under the "com.stems" namespace, while the musical key reuses
// the "com.apple.iTunes" mean already recognized by DJ software that
// reads initialkey tags. All are stored as `----` atoms so generic
// iTunes readers skip them cleanly.
const (
	freeformMean    = "com.stems"
	freeformMeanKey = "com.apple.iTunes"

	freeformNameLyrics     = "kara"
	freeformNameVocalPitch = "vpch"
	freeformNameOnsets     = "kons"
	freeformNameKey        = "initialkey"
)

const (
	vocalPitchVersion = 1
	onsetsVersion     = 1

	pitchCentsMin = -50
	pitchCentsMax = 50
)

// WriteItunesText writes one of the standard single-value text atoms
// (©nam, ©ART, ©alb, ©day, ©gen, ...) as UTF-8.
func WriteItunesText(buf []byte, typ FourCC, value string) ([]byte, error) {
	atomBytes := buildItunesAtom(typ, DataTypeUTF8, []byte(value))
	return PutIlstAtom(buf, atomBytes)
}

// WriteTempo writes the `tmpo` atom: a big-endian uint16 BPM stored as a
// DataTypeInteger payload.
func WriteTempo(buf []byte, bpm uint16) ([]byte, error) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, bpm)
	atomBytes := buildItunesAtom(AtomTempo, DataTypeInteger, payload)
	return PutIlstAtom(buf, atomBytes)
}

// WriteTrackNumber writes the `trkn` atom: an 8-byte implicit-type
// payload of (reserved u16=0, track u16, total u16, reserved u16=0).
func WriteTrackNumber(buf []byte, track, total uint16) ([]byte, error) {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint16(payload[2:4], track)
	binary.BigEndian.PutUint16(payload[4:6], total)
	atomBytes := buildItunesAtom(AtomTrkn, DataTypeImplicit, payload)
	return PutIlstAtom(buf, atomBytes)
}

// WriteFreeform writes a free-form `----` atom keyed by (mean, name)
// with a raw binary or text payload, for callers owning their own
// (mean, name, dataType) convention.
func WriteFreeform(buf []byte, mean, name string, dataType int, payload []byte) ([]byte, error) {
	atomBytes := buildFreeformAtom(mean, name, dataType, payload)
	return PutIlstAtom(buf, atomBytes)
}

// ReadFreeform returns the payload of the free-form atom keyed by
// (mean, name), or ok=false if absent.
func ReadFreeform(buf []byte, mean, name string) ([]byte, bool, error) {
	return ReadIlstAtom(buf, IlstKey{Type: TypeFree, Mean: mean, Name: name})
}

// WriteStemJSON stores stem/mastering metadata JSON in the `stem` atom
// directly under moov/udta.
func WriteStemJSON(buf []byte, jsonBytes []byte) ([]byte, error) {
	return PutStemAtom(buf, jsonBytes)
}

// WriteLyricsJSON stores the lyrics document JSON (see pkg/lyrics) as a
// free-form atom under com.stems/kara, tagged as UTF-8 text since the
// payload is a JSON document rather than a fixed binary record.
func WriteLyricsJSON(buf []byte, jsonBytes []byte) ([]byte, error) {
	return WriteFreeform(buf, freeformMean, freeformNameLyrics, DataTypeUTF8, jsonBytes)
}

// ReadLyricsJSON returns the raw lyrics document JSON, if present.
func ReadLyricsJSON(buf []byte) ([]byte, bool, error) {
	return ReadFreeform(buf, freeformMean, freeformNameLyrics)
}

// PitchPoint is one sample of a vocal pitch curve: a MIDI note number
// and a cents offset from it, clipped to [-50, 50] so every point fits
// a fixed two-byte record.
type PitchPoint struct {
	MIDINote uint8
	Cents    int8
}

// WriteVocalPitch encodes a vocal pitch curve as a free-form binary
// atom: version(u8=1) + sample_rate_hz(u32) + count(u32) + count *
// (midi_note u8, cents i8).
func WriteVocalPitch(buf []byte, sampleRateHz uint32, points []PitchPoint) ([]byte, error) {
	payload := make([]byte, 0, 9+2*len(points))
	payload = append(payload, vocalPitchVersion)
	payload = append(payload, beBytes32(sampleRateHz)...)
	payload = append(payload, beBytes32(uint32(len(points)))...)
	for _, p := range points {
		cents := clipCents(p.Cents)
		payload = append(payload, p.MIDINote, byte(cents))
	}
	return WriteFreeform(buf, freeformMean, freeformNameVocalPitch, DataTypeImplicit, payload)
}

// ReadVocalPitch decodes a vocal pitch curve written by WriteVocalPitch.
func ReadVocalPitch(buf []byte) (sampleRateHz uint32, points []PitchPoint, ok bool, err error) {
	p, found, err := ReadFreeform(buf, freeformMean, freeformNameVocalPitch)
	if err != nil || !found {
		return 0, nil, found, err
	}
	if len(p) < 9 {
		return 0, nil, false, &MalformedPayloadError{Atom: freeformNameVocalPitch, Reason: "payload shorter than header"}
	}
	if p[0] != vocalPitchVersion {
		return 0, nil, false, &MalformedPayloadError{Atom: freeformNameVocalPitch, Reason: "unsupported version"}
	}
	sampleRateHz = beUint32(p[1:5])
	count := beUint32(p[5:9])
	need := 9 + int(count)*2
	if len(p) < need {
		return 0, nil, false, &MalformedPayloadError{Atom: freeformNameVocalPitch, Reason: fmt.Sprintf("points: need %d bytes have %d", need, len(p))}
	}
	points = make([]PitchPoint, count)
	for i := range points {
		off := 9 + i*2
		points[i] = PitchPoint{MIDINote: p[off], Cents: int8(p[off+1])}
	}
	return sampleRateHz, points, true, nil
}

func clipCents(c int8) int8 {
	if c < pitchCentsMin {
		return pitchCentsMin
	}
	if c > pitchCentsMax {
		return pitchCentsMax
	}
	return c
}

// WriteOnsets encodes a list of onset times (seconds, rounded to the
// nearest millisecond) as a free-form binary atom: version(u8=1) +
// count(u32) + count * time_ms(u32).
func WriteOnsets(buf []byte, onsetsSeconds []float64) ([]byte, error) {
	payload := make([]byte, 0, 5+4*len(onsetsSeconds))
	payload = append(payload, onsetsVersion)
	payload = append(payload, beBytes32(uint32(len(onsetsSeconds)))...)
	for _, s := range onsetsSeconds {
		ms := uint32(s*1000 + 0.5)
		payload = append(payload, beBytes32(ms)...)
	}
	return WriteFreeform(buf, freeformMean, freeformNameOnsets, DataTypeImplicit, payload)
}

// ReadOnsets decodes onset times, in milliseconds, written by
// WriteOnsets.
func ReadOnsets(buf []byte) ([]uint32, bool, error) {
	p, found, err := ReadFreeform(buf, freeformMean, freeformNameOnsets)
	if err != nil || !found {
		return nil, found, err
	}
	if len(p) < 5 {
		return nil, false, &MalformedPayloadError{Atom: freeformNameOnsets, Reason: "payload shorter than header"}
	}
	if p[0] != onsetsVersion {
		return nil, false, &MalformedPayloadError{Atom: freeformNameOnsets, Reason: "unsupported version"}
	}
	count := beUint32(p[1:5])
	need := 5 + int(count)*4
	if len(p) < need {
		return nil, false, &MalformedPayloadError{Atom: freeformNameOnsets, Reason: fmt.Sprintf("entries: need %d bytes have %d", need, len(p))}
	}
	out := make([]uint32, count)
	for i := range out {
		off := 5 + i*4
		out[i] = beUint32(p[off : off+4])
	}
	return out, true, nil
}

// WriteMusicalKey stores the track's initial musical key (e.g. "Am",
// "C#m") as UTF-8 text in a free-form atom under com.apple.iTunes,
// matching the convention DJ software looks for.
func WriteMusicalKey(buf []byte, key string) ([]byte, error) {
	return WriteFreeform(buf, freeformMeanKey, freeformNameKey, DataTypeUTF8, []byte(key))
}

// ReadMusicalKey returns the stored musical key, if present.
func ReadMusicalKey(buf []byte) (string, bool, error) {
	p, found, err := ReadFreeform(buf, freeformMeanKey, freeformNameKey)
	if err != nil || !found {
		return "", found, err
	}
	return string(p), true, nil
}
