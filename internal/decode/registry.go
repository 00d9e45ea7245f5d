// ABOUTME: Per-codec CodecDecoder implementations wrapping the pack's real decode libraries
// ABOUTME: Grounded on the teacher's pkg/audio/decode/{opus,mp3,flac,pcm}.go, adapted to the PcmBuffer contract
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	opus "gopkg.in/hraban/opus.v2"
)

// CodecKind names the set of codecs the registry knows how to build.
type CodecKind int

const (
	CodecPCM CodecKind = iota
	CodecMP3
	CodecFLAC
	CodecOpus
)

// PCMParams describes a raw PCM track's layout; set as TrackInfo.CodecParams
// for CodecPCM tracks.
type PCMParams struct {
	SampleRate uint32
	Channels   uint8
	BitDepth   int // 16 or 24
}

// OpusParams describes an Opus track's layout; set as TrackInfo.CodecParams
// for CodecOpus tracks.
type OpusParams struct {
	SampleRate uint32
	Channels   uint8
}

// NewCodecDecoder returns the constructor that builds a CodecDecoder from a
// track's CodecParams, dispatching on kind. The enabled set is "containing the enabled set plus Opus when
// configured" per spec §4.4 — callers pass only the kinds they want live.
func NewCodecDecoder(kind CodecKind) func(track TrackInfo) (CodecDecoder, error) {
	switch kind {
	case CodecPCM:
		return newPCMDecoder
	case CodecMP3:
		return newMP3Decoder
	case CodecFLAC:
		return newFLACDecoder
	case CodecOpus:
		return newOpusDecoder
	default:
		return func(TrackInfo) (CodecDecoder, error) {
			return nil, fmt.Errorf("decode: unknown codec kind %d", kind)
		}
	}
}

// --- PCM ---

type pcmDecoder struct {
	params PCMParams
}

func newPCMDecoder(track TrackInfo) (CodecDecoder, error) {
	params, ok := track.CodecParams.(PCMParams)
	if !ok {
		return nil, fmt.Errorf("decode: pcm track missing PCMParams")
	}
	if params.BitDepth != 16 && params.BitDepth != 24 {
		return nil, fmt.Errorf("decode: unsupported pcm bit depth %d", params.BitDepth)
	}
	return &pcmDecoder{params: params}, nil
}

func (d *pcmDecoder) DecodePacket(p Packet) (PcmBuffer, error) {
	spec := SignalSpec{SampleRate: d.params.SampleRate, Channels: d.params.Channels}
	if d.params.BitDepth == 24 {
		n := len(p.Data) / 3
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			b := [3]byte{p.Data[i*3], p.Data[i*3+1], p.Data[i*3+2]}
			samples[i] = sampleFrom24Bit(b)
		}
		return PcmBuffer{Spec: spec, Samples: samples}, nil
	}
	n := len(p.Data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s16 := int16(binary.LittleEndian.Uint16(p.Data[i*2:]))
		samples[i] = sampleFromInt16(s16)
	}
	return PcmBuffer{Spec: spec, Samples: samples}, nil
}

func (d *pcmDecoder) Finalize() error { return nil }

func sampleFromInt16(s int16) float32 {
	return float32(s) / 32768.0
}

func sampleFrom24Bit(b [3]byte) float32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / 8388608.0
}

// --- MP3 ---

type mp3Decoder struct {
	dec *gomp3.Decoder
}

func newMP3Decoder(TrackInfo) (CodecDecoder, error) {
	return &mp3Decoder{}, nil
}

// DecodePacket receives the whole encoded track as one packet (see
// streamFormatReader) and drains it in one call, since there is no further
// call coming to resume from. A pending seek (p.SeekSkipSeconds) is honored
// by decoding from the start regardless — these libraries expose no
// byte-accurate seek — and discarding samples before the target instead of
// writing them.
func (d *mp3Decoder) DecodePacket(p Packet) (PcmBuffer, error) {
	if d.dec == nil {
		dec, err := gomp3.NewDecoder(bytes.NewReader(p.Data))
		if err != nil {
			return PcmBuffer{}, &DecodeError{Err: fmt.Errorf("mp3: open frame: %w", err)}
		}
		d.dec = dec
	}

	spec := SignalSpec{SampleRate: uint32(d.dec.SampleRate()), Channels: 2}
	skip := seekSkipSamples(p.SeekSkipSeconds, spec)

	var samples []float32
	var decoded uint64
	buf := make([]byte, 8192)
	for {
		n, err := d.dec.Read(buf)
		numSamples := n / 2
		for i := 0; i < numSamples; i++ {
			if decoded < skip {
				decoded++
				continue
			}
			s16 := int16(binary.LittleEndian.Uint16(buf[i*2:]))
			samples = append(samples, sampleFromInt16(s16))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return PcmBuffer{}, &DecodeError{Err: fmt.Errorf("mp3: decode: %w", err)}
		}
		if n == 0 {
			break
		}
	}
	return PcmBuffer{Spec: spec, Samples: samples}, nil
}

func (d *mp3Decoder) Finalize() error { return nil }

// --- FLAC ---

type flacDecoder struct {
	stream *flac.Stream
}

func newFLACDecoder(TrackInfo) (CodecDecoder, error) {
	return &flacDecoder{}, nil
}

// DecodePacket parses every remaining FLAC frame in the one whole-track
// packet it is given, discarding decoded samples before a pending seek
// target (p.SeekSkipSeconds) and returning the rest concatenated.
func (d *flacDecoder) DecodePacket(p Packet) (PcmBuffer, error) {
	if d.stream == nil {
		stream, err := flac.New(bytes.NewReader(p.Data))
		if err != nil {
			return PcmBuffer{}, &DecodeError{Err: fmt.Errorf("flac: open stream: %w", err)}
		}
		d.stream = stream
	}

	spec := SignalSpec{
		SampleRate: d.stream.Info.SampleRate,
		Channels:   uint8(d.stream.Info.NChannels),
	}
	skip := seekSkipSamples(p.SeekSkipSeconds, spec)

	var samples []float32
	var decoded uint64
	framesSeen := 0
	for {
		fr, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				if framesSeen == 0 {
					return PcmBuffer{}, ErrEndOfStream
				}
				break
			}
			return PcmBuffer{}, &DecodeError{Err: fmt.Errorf("flac: parse frame: %w", err)}
		}
		framesSeen++
		for _, s := range interleaveFlacFrame(fr, int(d.stream.Info.BitsPerSample)) {
			if decoded < skip {
				decoded++
				continue
			}
			samples = append(samples, s)
		}
	}
	return PcmBuffer{Spec: spec, Samples: samples}, nil
}

func (d *flacDecoder) Finalize() error { return nil }

func interleaveFlacFrame(fr *frame.Frame, bitsPerSample int) []float32 {
	nchan := len(fr.Subframes)
	if nchan == 0 {
		return nil
	}
	nsamp := len(fr.Subframes[0].Samples)
	out := make([]float32, 0, nsamp*nchan)
	scale := float32(int64(1) << uint(bitsPerSample-1))
	for i := 0; i < nsamp; i++ {
		for ch := 0; ch < nchan; ch++ {
			out = append(out, float32(fr.Subframes[ch].Samples[i])/scale)
		}
	}
	return out
}

// --- Opus ---

type opusDecoder struct {
	params  OpusParams
	decoder *opus.Decoder
}

func newOpusDecoder(track TrackInfo) (CodecDecoder, error) {
	params, ok := track.CodecParams.(OpusParams)
	if !ok {
		return nil, fmt.Errorf("decode: opus track missing OpusParams")
	}
	dec, err := opus.NewDecoder(int(params.SampleRate), int(params.Channels))
	if err != nil {
		return nil, fmt.Errorf("decode: new opus decoder: %w", err)
	}
	return &opusDecoder{params: params, decoder: dec}, nil
}

// DecodePacket decodes the one Opus packet it is handed, discarding decoded
// samples before a pending seek target (p.SeekSkipSeconds). Unlike mp3/flac
// this format carries no internal framing here to loop over — one call
// decodes the track's only frame — so a seek target past this frame's
// length yields an empty buffer.
func (d *opusDecoder) DecodePacket(p Packet) (PcmBuffer, error) {
	pcmSize := 5760 * int(d.params.Channels)
	pcm16 := make([]int16, pcmSize)

	n, err := d.decoder.Decode(p.Data, pcm16)
	if err != nil {
		return PcmBuffer{}, &DecodeError{Err: fmt.Errorf("opus: decode: %w", err)}
	}

	spec := SignalSpec{SampleRate: d.params.SampleRate, Channels: d.params.Channels}
	skip := seekSkipSamples(p.SeekSkipSeconds, spec)

	total := uint64(n * int(d.params.Channels))
	start := skip
	if start > total {
		start = total
	}
	samples := make([]float32, 0, total-start)
	for i := start; i < total; i++ {
		samples = append(samples, sampleFromInt16(pcm16[i]))
	}
	return PcmBuffer{Spec: spec, Samples: samples}, nil
}

// seekSkipSamples converts a seek target in seconds into an interleaved
// sample count to discard, using the track's actual decoded layout (known
// only once the codec has opened the stream) rather than its nominal
// metadata.
func seekSkipSamples(seconds float64, spec SignalSpec) uint64 {
	if seconds <= 0 || spec.SampleRate == 0 || spec.Channels == 0 {
		return 0
	}
	return uint64(seconds * float64(spec.SampleRate) * float64(spec.Channels))
}

func (d *opusDecoder) Finalize() error { return nil }
