// ABOUTME: Core types for the packet -> decode -> filter -> sink pipeline
// ABOUTME: FormatReader/AudioDecode are the two boundaries real codecs implement
package decode

import (
	"errors"
	"time"
)

// SignalSpec describes the PCM layout a sink must be opened with.
type SignalSpec struct {
	SampleRate uint32
	Channels   uint8
}

// TrackInfo is the subset of a probed track's metadata the pipeline needs to
// select a track and build a decoder for it.
type TrackInfo struct {
	ID         uint32
	CodecNull  bool // true for tracks with no audio codec (e.g. attached pictures)
	CodecParams any
}

// Packet is one demuxed chunk of encoded audio belonging to a single track.
type Packet struct {
	TrackID   uint32
	Timestamp uint64 // in the stream's time base
	Data      []byte

	// SeekSkipSeconds is set on a reader's one-packet-per-track delivery
	// (container codecs that hand the whole stream to the pipeline at
	// Timestamp 0) when a seek landed on it. Packet.Timestamp can't express
	// a seek target for a reader with no intermediate packet boundaries, so
	// the codec decoder itself must discard decoded PCM before this many
	// seconds of output and return only what comes after.
	SeekSkipSeconds float64
}

// SeekMode mirrors the two seek precisions a FormatReader may support.
type SeekMode int

const (
	SeekAccurate SeekMode = iota
	SeekCoarse
)

// SeekResult reports where the reader actually landed.
type SeekResult struct {
	RequiredTS uint64
}

// ErrResetRequired signals a gapless-reader reset between tracks in one
// stream; callers re-select the first supported track and seek-ts 0.
var ErrResetRequired = errors.New("decode: reset required")

// ErrEndOfStream is normal completion, not a failure — it is the only
// UnexpectedEof variant the loop treats as non-error.
var ErrEndOfStream = errors.New("decode: end of stream")

// ErrInterrupt marks an external interruption that, like cancellation, must
// not trigger a flush.
var ErrInterrupt = errors.New("decode: interrupted")

// FormatReader is the demuxer/seeker boundary. Concrete codec containers
// (mp3/flac/opus-in-ogg/raw pcm) implement this.
type FormatReader interface {
	Tracks() []TrackInfo
	DefaultTrackIndex() (int, bool)
	NextPacket() (Packet, error)
	Seek(mode SeekMode, toSeconds float64) (SeekResult, error)
}

// PcmBuffer is the canonical f32 interleaved decode buffer filters and sinks
// operate on.
type PcmBuffer struct {
	Spec    SignalSpec
	Samples []float32 // interleaved
}

// Clone deep-copies the buffer; used to fan the same decode out to every
// sink but the last, which receives the original by move.
func (b PcmBuffer) Clone() PcmBuffer {
	cp := make([]float32, len(b.Samples))
	copy(cp, b.Samples)
	return PcmBuffer{Spec: b.Spec, Samples: cp}
}

// AudioDecode is the sink contract: decoded PCM arrives via Decoded, and
// Flush drains any buffered samples at the end of a run that wasn't
// cancelled.
type AudioDecode interface {
	Decoded(buf PcmBuffer) error
	Flush() error
}

// OpenOutputFactory constructs a sink once the actual stream SignalSpec is
// known, sized for roughly bufferFor worth of audio.
type OpenOutputFactory func(spec SignalSpec, bufferFor time.Duration) (AudioDecode, error)

// Filter mutates a decode buffer in place before it reaches the sinks —
// e.g. resampling, gain, or format conversion.
type Filter func(buf *PcmBuffer, packet *Packet, track *TrackInfo) error

// CodecDecoder turns packet payloads for one track into PCM.
type CodecDecoder interface {
	DecodePacket(p Packet) (PcmBuffer, error)
	Finalize() error
}

// DecodeError is a non-fatal per-packet decode failure: the loop counts it
// and continues.
type DecodeError struct{ Err error }

func (e *DecodeError) Error() string { return "decode: packet decode failed: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
