// ABOUTME: Wires a single track into the decode pipeline (C4) and fans its PCM out to target handles
// ABOUTME: The only DecodeRunner implementation Handler ships; resolves the track source via MusicApi
package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/resonatefm/sessioncore/internal/adapters"
	"github.com/resonatefm/sessioncore/internal/decode"
	"github.com/resonatefm/sessioncore/internal/metrics"
	"github.com/resonatefm/sessioncore/internal/model"
	"github.com/resonatefm/sessioncore/internal/target"
)

// SinkFactory opens the AudioDecode sink a single player handle should
// receive PCM through — e.g. an oto/v3-backed local output, or a network
// forwarder to a remote player. One SinkFactory call happens per
// target.Handle per track.
type SinkFactory func(h target.Handle, spec decode.SignalSpec, bufferFor time.Duration) (decode.AudioDecode, error)

// Runner is the production DecodeRunner: it resolves a track's source
// through MusicApi, opens a FormatReader appropriate to its codec, and
// drives decode.Decode with one sink per target handle. EnabledCodecs
// restricts which codec kinds this runner will open a decoder for — the
// "enabled set plus Opus when configured" of spec §4.4.
type Runner struct {
	MusicAPI      adapters.MusicApi
	NewSink       SinkFactory
	EnabledCodecs []decode.CodecKind

	// Pool bounds how many RunTrack calls decode concurrently, process-wide
	// (spec's MAX_THREADS). Nil runs unbounded, which is fine in tests but
	// not in production — cmd/sessiond always wires one sized from config.
	Pool *decode.Pool
}

func (r *Runner) RunTrack(ctx context.Context, sessionID uint64, track model.Track, seekSeconds float64, quality model.PlaybackQuality, handles []target.Handle, cancel *decode.CancellationToken) error {
	source, err := r.MusicAPI.TrackSource(ctx, track.ID, quality)
	if err != nil {
		return fmt.Errorf("playback: resolve track source: %w", err)
	}

	body, codecKind, err := openSource(ctx, source)
	if err != nil {
		return err
	}
	defer body.Close()

	if !r.codecEnabled(codecKind) {
		return ErrInvalidSource
	}

	reader := newStreamFormatReader(body, track, codecKind)

	openOutputs := make([]decode.OpenOutputFactory, 0, len(handles))
	for _, h := range handles {
		handle := h
		openOutputs = append(openOutputs, func(spec decode.SignalSpec, bufferFor time.Duration) (decode.AudioDecode, error) {
			return r.NewSink(handle, spec, bufferFor)
		})
	}

	opts := decode.Options{
		Reader:             reader,
		OpenOutputs:        openOutputs,
		Cancellation:       cancel,
		SeekSeconds:        &seekSeconds,
		NewCodecDecoder:    decode.NewCodecDecoder(codecKind),
		BufferCapacityHint: 2 * time.Second,
	}

	runDecode := func() (decode.Result, error) { return decode.Decode(opts, metrics.DecodeErrorCounter{}) }
	var result decode.Result
	if r.Pool != nil {
		result, err = r.Pool.Run(ctx, runDecode)
	} else {
		result, err = runDecode()
	}
	if err != nil {
		return err
	}
	if result == decode.Cancelled {
		return ErrCancelled
	}
	if result == decode.VerificationFailed {
		return ErrRetryRequested
	}
	return nil
}

func (r *Runner) codecEnabled(kind decode.CodecKind) bool {
	if len(r.EnabledCodecs) == 0 {
		return true
	}
	for _, k := range r.EnabledCodecs {
		if k == kind {
			return true
		}
	}
	return false
}

func openSource(ctx context.Context, source model.TrackSource) (io.ReadCloser, decode.CodecKind, error) {
	kind := codecKindFor(source.Format)
	switch source.Kind {
	case model.TrackSourceLocalFile:
		f, err := os.Open(source.Path)
		if err != nil {
			return nil, kind, ErrInvalidSource
		}
		return f, kind, nil
	case model.TrackSourceRemoteURL:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return nil, kind, ErrInvalidSource
		}
		for k, v := range source.Headers {
			req.Header.Set(k, v)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, kind, ErrRetryRequested
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, kind, ErrRetryRequested
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, kind, ErrInvalidSource
		}
		return resp.Body, kind, nil
	default:
		return nil, kind, ErrInvalidSource
	}
}

func codecKindFor(format model.PlaybackQualityFormat) decode.CodecKind {
	switch format {
	case model.FormatMP3:
		return decode.CodecMP3
	case model.FormatFLAC:
		return decode.CodecFLAC
	case model.FormatOpus:
		return decode.CodecOpus
	default:
		return decode.CodecPCM
	}
}
