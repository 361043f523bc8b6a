// Package collab declares the seams stemkit leaves for external,
// closed-source collaborators to plug real audio codecs and source
// separation into: the stem-encode/decode and VTT-export steps this
// repository deliberately does not implement. pkg/mp4 and its callers
// only ever see these interfaces; no implementation lives in this
// module.
package collab

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// ErrCollaboratorNotConfigured is the sentinel error for a StemEncoder,
// AudioDecoder, or VTTWriter that was never supplied. No code in this
// module returns it.
var ErrCollaboratorNotConfigured = errors.New("collab: no implementation configured")

// AudioDecoder decodes a track's elementary audio stream (the
// concatenated codec frames that pkg/mp4's ExtractTrack wraps in a
// standalone MP4) into raw PCM samples, so it can be fed to a
// source-separation model or re-encoded.
type AudioDecoder interface {
	DecodePCM(ctx context.Context, elementaryStream io.Reader) (pcm io.Reader, sampleRate int, channels int, err error)
}

// StemEncoder encodes raw PCM samples back into a codec-specific
// elementary stream suitable for splicing into an stsd-matching
// sample table (e.g. re-encoding an isolated vocal stem to AAC).
type StemEncoder interface {
	EncodeElementaryStream(ctx context.Context, pcm io.Reader, sampleRate, channels int) (elementaryStream io.Reader, err error)
}

// VTTWriter renders a lyrics.Document (see pkg/lyrics) to WebVTT for
// external karaoke-overlay players.
type VTTWriter interface {
	WriteVTT(ctx context.Context, w io.Writer, linesJSON []byte) error
}
