// ABOUTME: oto/v3-backed AudioDecode sink that writes PCM straight to the OS audio device
// ABOUTME: Grounded on the teacher's pkg/audio/output.Oto, adapted to the f32 PcmBuffer contract
package localsink

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/resonatefm/sessioncore/internal/decode"
)

// Sink is a decode.AudioDecode that plays PCM through the local audio
// device via oto. One Sink is opened per target handle whose output is the
// process's own speaker (as opposed to a network-forwarding sink for a
// remote player) — see Runner.NewSink.
type Sink struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
	writer *io.PipeWriter
	volume float64
}

// contextFactory caches the single process-wide oto.Context; oto only
// supports one per process, matching the teacher's own "can't reinitialize"
// constraint in pkg/audio/output/oto.go.
var (
	contextMu    sync.Mutex
	sharedCtx    *oto.Context
	sharedSpec   decode.SignalSpec
	sharedFormat = oto.FormatSignedInt16LE
)

// Open returns a Sink bound to the local audio device at spec's sample rate
// and channel count, buffered for roughly bufferFor worth of audio. It
// satisfies decode.OpenOutputFactory.
func Open(spec decode.SignalSpec, bufferFor time.Duration) (decode.AudioDecode, error) {
	ctx, err := sharedContext(spec)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.SetBufferSize(bufferSizeFor(spec, bufferFor))
	player.Play()

	return &Sink{otoCtx: ctx, player: player, writer: pw, volume: 1.0}, nil
}

func sharedContext(spec decode.SignalSpec) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()

	if sharedCtx != nil {
		if sharedSpec != spec {
			return nil, fmt.Errorf("localsink: oto context already opened at %dHz/%dch, cannot reopen at %dHz/%dch",
				sharedSpec.SampleRate, sharedSpec.Channels, spec.SampleRate, spec.Channels)
		}
		return sharedCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   int(spec.SampleRate),
		ChannelCount: int(spec.Channels),
		Format:       sharedFormat,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("localsink: open oto context: %w", err)
	}
	<-ready

	sharedCtx = ctx
	sharedSpec = spec
	return ctx, nil
}

func bufferSizeFor(spec decode.SignalSpec, bufferFor time.Duration) time.Duration {
	if bufferFor <= 0 {
		return 2 * time.Second
	}
	return bufferFor
}

// SetVolume sets a linear gain applied to every sample before it reaches
// the device; v is clamped to [0, 1].
func (s *Sink) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// Decoded writes buf to the pipe feeding the oto player, converting f32
// samples to the signed 16-bit little-endian format oto requires.
func (s *Sink) Decoded(buf decode.PcmBuffer) error {
	s.mu.Lock()
	volume := s.volume
	s.mu.Unlock()

	out := make([]byte, len(buf.Samples)*2)
	for i, sample := range buf.Samples {
		scaled := sample * float32(volume)
		binary.LittleEndian.PutUint16(out[i*2:], floatToInt16(scaled))
	}

	_, err := s.writer.Write(out)
	return err
}

// Flush is a no-op: the pipe write in Decoded already blocks until the
// player has consumed the data, so there is nothing buffered to drain.
func (s *Sink) Flush() error {
	return nil
}

// Close releases this sink's player and pipe; the shared oto context is
// left running for the next track.
func (s *Sink) Close() error {
	s.writer.Close()
	s.player.Close()
	return nil
}

func floatToInt16(f float32) uint16 {
	v := f * math.MaxInt16
	if v > math.MaxInt16 {
		v = math.MaxInt16
	}
	if v < math.MinInt16 {
		v = math.MinInt16
	}
	return uint16(int16(v))
}
