package playback

import (
	"io"
	"math"

	"github.com/resonatefm/sessioncore/internal/decode"
	"github.com/resonatefm/sessioncore/internal/model"
)

// pcmChunkBytes sizes each raw-PCM packet at 10ms of 48kHz/16-bit
// stereo audio — small enough to keep seek-ts trimming reasonably precise.
const pcmChunkBytes = 1920

// streamFormatReader adapts a single io.Reader carrying one whole encoded
// track into the decode.FormatReader contract. Container codecs (mp3/flac/
// opus) open their own internal streaming decoder from the first packet's
// bytes and pull everything else through the same reader, so this type
// hands them the full remaining stream as one packet; PCM is genuinely
// framed into fixed-size packets since its decoder has no internal buffer.
type streamFormatReader struct {
	body  io.Reader
	track model.Track
	codec decode.CodecKind

	trackID    uint32
	delivered  bool
	tsPerChunk uint64
	ts         uint64

	// seekSkipSeconds carries a pending seek target to the single packet a
	// container codec's NextPacket ever delivers; see Seek.
	seekSkipSeconds float64
}

func newStreamFormatReader(body io.Reader, track model.Track, codec decode.CodecKind) *streamFormatReader {
	return &streamFormatReader{body: body, track: track, codec: codec, trackID: 1}
}

func (r *streamFormatReader) Tracks() []decode.TrackInfo {
	switch r.codec {
	case decode.CodecPCM:
		params := decode.PCMParams{SampleRate: r.track.SampleRate, Channels: r.track.Channels, BitDepth: int(r.track.BitDepth)}
		if params.BitDepth == 0 {
			params.BitDepth = 16
		}
		return []decode.TrackInfo{{ID: r.trackID, CodecParams: params}}
	case decode.CodecOpus:
		return []decode.TrackInfo{{ID: r.trackID, CodecParams: decode.OpusParams{SampleRate: r.track.SampleRate, Channels: r.track.Channels}}}
	default:
		return []decode.TrackInfo{{ID: r.trackID}}
	}
}

func (r *streamFormatReader) DefaultTrackIndex() (int, bool) { return 0, true }

func (r *streamFormatReader) NextPacket() (decode.Packet, error) {
	if r.codec == decode.CodecPCM {
		return r.nextPCMChunk()
	}
	if r.delivered {
		return decode.Packet{}, decode.ErrEndOfStream
	}
	data, err := io.ReadAll(r.body)
	if err != nil {
		return decode.Packet{}, err
	}
	r.delivered = true
	if len(data) == 0 {
		return decode.Packet{}, decode.ErrEndOfStream
	}
	return decode.Packet{TrackID: r.trackID, Timestamp: 0, Data: data, SeekSkipSeconds: r.seekSkipSeconds}, nil
}

func (r *streamFormatReader) nextPCMChunk() (decode.Packet, error) {
	buf := make([]byte, pcmChunkBytes)
	n, err := io.ReadFull(r.body, buf)
	if n == 0 {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return decode.Packet{}, decode.ErrEndOfStream
		}
		if err != nil {
			return decode.Packet{}, err
		}
	}
	ts := r.ts
	r.ts++
	if err == io.ErrUnexpectedEOF {
		return decode.Packet{TrackID: r.trackID, Timestamp: ts, Data: buf[:n]}, nil
	}
	if err != nil && err != io.EOF {
		return decode.Packet{}, err
	}
	return decode.Packet{TrackID: r.trackID, Timestamp: ts, Data: buf[:n]}, nil
}

// Seek resolves toSeconds into a trim target appropriate to how this track
// is packetized. PCM packets carry a real, monotonically increasing
// timestamp (the chunk index assigned in nextPCMChunk), so the decode loop
// can drop whole pre-seek packets cheaply by comparing against RequiredTS
// before ever decoding them. Container codecs (mp3/flac/opus) hand their
// entire stream to the pipeline as a single packet at Timestamp 0 — there is
// no packet boundary for a seek target to land on — so RequiredTS stays 0
// (the pipeline's packet-level gate always admits that one packet) and the
// seek target instead rides along on it as SeekSkipSeconds, for the codec
// decoder in internal/decode/registry.go to honor by discarding decoded PCM
// up to that point before handing back what remains.
func (r *streamFormatReader) Seek(mode decode.SeekMode, toSeconds float64) (decode.SeekResult, error) {
	if toSeconds < 0 {
		toSeconds = 0
	}
	r.seekSkipSeconds = toSeconds

	if r.codec != decode.CodecPCM {
		return decode.SeekResult{RequiredTS: 0}, nil
	}

	chunkSeconds := pcmChunkSeconds(r.track)
	if chunkSeconds <= 0 {
		return decode.SeekResult{RequiredTS: 0}, nil
	}
	// Round up: the retained packet's start time must land at or after
	// toSeconds, not the last one strictly before it.
	return decode.SeekResult{RequiredTS: uint64(math.Ceil(toSeconds / chunkSeconds))}, nil
}

// pcmChunkSeconds reports how much audio one pcmChunkBytes packet holds for
// track's layout, defaulting the bit depth to 16 the same way Tracks() does.
func pcmChunkSeconds(track model.Track) float64 {
	bitDepth := int(track.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	bytesPerSample := bitDepth / 8
	if track.SampleRate == 0 || track.Channels == 0 || bytesPerSample == 0 {
		return 0
	}
	bytesPerSecond := float64(track.SampleRate) * float64(track.Channels) * float64(bytesPerSample)
	return float64(pcmChunkBytes) / bytesPerSecond
}
