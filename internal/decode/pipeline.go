// ABOUTME: Packet -> decode -> filter -> sink loop with seek/cancel/flush/verify
// ABOUTME: Implements the state machine of spec §4.4: READ -> skip|decode -> open-outputs? -> trim|write -> loop
package decode

import (
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result splits the original's conflated 0/1/2 return codes into an
// explicit enum, per spec §9's redesign note, while Code preserves the
// legacy numbering for tooling that still expects it.
type Result int

const (
	Completed Result = iota
	VerificationFailed
	Cancelled
)

// Code returns the legacy numeric code: 0 completed, 1 verification failed,
// 2 cancelled.
func (r Result) Code() int {
	switch r {
	case VerificationFailed:
		return 1
	case Cancelled:
		return 2
	default:
		return 0
	}
}

// Options configures one decode() run.
type Options struct {
	Reader             FormatReader
	Filters            []Filter
	OpenOutputs        []OpenOutputFactory
	Cancellation       *CancellationToken
	SelectedTrackIndex *int // caller-supplied; nil means auto-select
	SeekSeconds        *float64
	NewCodecDecoder    func(track TrackInfo) (CodecDecoder, error)
	Verify             bool
	BufferCapacityHint time.Duration
}

// DecodeErrorCounter receives a count of non-fatal per-packet decode errors
// once a run completes; nil is fine, it is purely observational (spec §4.4
// step 4, wired to internal/metrics in production).
type DecodeErrorCounter interface {
	Add(n int)
}

// Decode runs one full packet loop against opts.Reader, writing PCM to the
// sinks built from opts.OpenOutputs, and returns the outcome.
func Decode(opts Options, errCounter DecodeErrorCounter) (Result, error) {
	trackIdx, track, ok := selectTrack(opts.Reader, opts.SelectedTrackIndex)
	if !ok {
		return Completed, nil
	}

	seekTS, resetRequired := resolveSeek(opts.Reader, opts.SeekSeconds)
	if resetRequired {
		trackIdx, track, ok = selectTrack(opts.Reader, nil)
		if !ok {
			return Completed, nil
		}
	}

	result, err := playTrack(opts, trackIdx, track, seekTS, errCounter)
	if errors.Is(err, ErrResetRequired) {
		trackIdx, track, ok = selectTrack(opts.Reader, nil)
		if !ok {
			return Completed, nil
		}
		result, err = playTrack(opts, trackIdx, track, 0, errCounter)
	}
	return result, err
}

// selectTrack implements spec §4.4 step 1: caller index if valid, else the
// reader's own default track if it names a playable one, else the first
// track whose codec is not null, else "no-op" (index 0, ok=false).
func selectTrack(reader FormatReader, selected *int) (int, TrackInfo, bool) {
	tracks := reader.Tracks()
	if selected != nil && *selected >= 0 && *selected < len(tracks) {
		return *selected, tracks[*selected], true
	}
	if idx, ok := reader.DefaultTrackIndex(); ok && idx >= 0 && idx < len(tracks) && !tracks[idx].CodecNull {
		return idx, tracks[idx], true
	}
	for i, t := range tracks {
		if !t.CodecNull {
			return i, t, true
		}
	}
	return 0, TrackInfo{}, false
}

// resolveSeek implements spec §4.4 step 2: seek in Accurate mode; on
// ResetRequired the caller re-picks and re-enters with seek-ts 0; on any
// other error, log-equivalent (swallowed here, surfaced via the caller's
// logger wrapper) and seek-ts 0.
func resolveSeek(reader FormatReader, seekSeconds *float64) (uint64, bool) {
	if seekSeconds == nil {
		return 0, false
	}
	res, err := reader.Seek(SeekAccurate, *seekSeconds)
	if err != nil {
		return 0, errors.Is(err, ErrResetRequired)
	}
	return res.RequiredTS, false
}

func playTrack(opts Options, trackIdx int, track TrackInfo, seekTS uint64, errCounter DecodeErrorCounter) (Result, error) {
	codec, err := opts.NewCodecDecoder(track)
	if err != nil {
		return Completed, err
	}

	outputs := make([]AudioDecode, 0, len(opts.OpenOutputs))
	pendingFactories := opts.OpenOutputs
	opened := false

	nonFatalDecodeErrors := 0

	for {
		if opts.Cancellation != nil && opts.Cancellation.IsCancelled() {
			return Cancelled, nil
		}

		packet, err := opts.Reader.NextPacket()
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				break
			}
			if errors.Is(err, ErrResetRequired) {
				return Completed, ErrResetRequired
			}
			return Completed, err
		}

		if packet.TrackID != track.ID {
			continue
		}

		buf, err := codec.DecodePacket(packet)
		if err != nil {
			var decErr *DecodeError
			if errors.As(err, &decErr) {
				nonFatalDecodeErrors++
				continue
			}
			return Completed, err
		}

		if !opened && len(pendingFactories) > 0 {
			for _, factory := range pendingFactories {
				sink, err := factory(buf.Spec, opts.BufferCapacityHint)
				if err != nil {
					return Completed, err
				}
				outputs = append(outputs, sink)
			}
			pendingFactories = nil
			opened = true
		}

		if packet.Timestamp >= seekTS {
			for _, f := range opts.Filters {
				if err := f(&buf, &packet, &track); err != nil {
					return Completed, err
				}
			}
			if err := writeToSinks(outputs, buf); err != nil {
				return Completed, err
			}
		}
	}

	if errCounter != nil && nonFatalDecodeErrors > 0 {
		errCounter.Add(nonFatalDecodeErrors)
	}

	for _, sink := range outputs {
		if err := sink.Flush(); err != nil {
			return Completed, err
		}
	}

	if err := codec.Finalize(); err != nil {
		return Completed, err
	}

	if opts.Verify {
		if err := verifyDecode(codec); err != nil {
			return VerificationFailed, nil
		}
	}

	return Completed, nil
}

// writeToSinks delivers buf by clone to every sink but the last, which
// receives the original by move (spec §4.4 step 4). Sinks are written to
// concurrently via errgroup since a sink's Decoded call may block on a
// slow output device or network write, and one slow sink shouldn't delay
// delivery to the others.
func writeToSinks(outputs []AudioDecode, buf PcmBuffer) error {
	switch len(outputs) {
	case 0:
		return nil
	case 1:
		return outputs[0].Decoded(buf)
	}

	var g errgroup.Group
	for i, sink := range outputs {
		sink := sink
		if i == len(outputs)-1 {
			g.Go(func() error { return sink.Decoded(buf) })
			continue
		}
		clone := buf.Clone()
		g.Go(func() error { return sink.Decoded(clone) })
	}
	return g.Wait()
}

// verifier is an optional extension a CodecDecoder may implement to support
// post-decode integrity checks.
type verifier interface {
	Verify() error
}

func verifyDecode(codec CodecDecoder) error {
	v, ok := codec.(verifier)
	if !ok {
		return nil
	}
	return v.Verify()
}
