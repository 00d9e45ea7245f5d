package decode

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader drives the pipeline through a scripted packet sequence.
type fakeReader struct {
	tracks       []TrackInfo
	packets      []Packet
	idx          int
	seekResult   SeekResult
	seekErr      error
	seekCalls    int
	resetAtIndex int // emit ErrResetRequired when idx reaches this, -1 to disable
}

func (f *fakeReader) Tracks() []TrackInfo { return f.tracks }
func (f *fakeReader) DefaultTrackIndex() (int, bool) {
	if len(f.tracks) == 0 {
		return 0, false
	}
	return 0, true
}

func (f *fakeReader) NextPacket() (Packet, error) {
	if f.resetAtIndex >= 0 && f.idx == f.resetAtIndex {
		f.idx++
		return Packet{}, ErrResetRequired
	}
	if f.idx >= len(f.packets) {
		return Packet{}, ErrEndOfStream
	}
	p := f.packets[f.idx]
	f.idx++
	return p, nil
}

func (f *fakeReader) Seek(mode SeekMode, toSeconds float64) (SeekResult, error) {
	f.seekCalls++
	return f.seekResult, f.seekErr
}

type fakeCodec struct {
	perPacket func(Packet) (PcmBuffer, error)
	finalized bool
}

func (c *fakeCodec) DecodePacket(p Packet) (PcmBuffer, error) { return c.perPacket(p) }
func (c *fakeCodec) Finalize() error                          { c.finalized = true; return nil }

type fakeSink struct {
	received []PcmBuffer
	flushed  int
}

func (s *fakeSink) Decoded(buf PcmBuffer) error { s.received = append(s.received, buf); return nil }
func (s *fakeSink) Flush() error                { s.flushed++; return nil }

type countingErrs struct{ n int }

func (c *countingErrs) Add(n int) { c.n += n }

func passthroughCodec() *fakeCodec {
	return &fakeCodec{perPacket: func(p Packet) (PcmBuffer, error) {
		return PcmBuffer{Spec: SignalSpec{SampleRate: 44100, Channels: 2}, Samples: []float32{float32(p.Timestamp)}}, nil
	}}
}

func newOpenFactory(sink *fakeSink) OpenOutputFactory {
	return func(SignalSpec, time.Duration) (AudioDecode, error) { return sink, nil }
}

func TestDecodeNaturalEOFFlushesEachSinkOnceInOrder(t *testing.T) {
	reader := &fakeReader{
		tracks:       []TrackInfo{{ID: 1}},
		packets:      []Packet{{TrackID: 1, Timestamp: 0}, {TrackID: 1, Timestamp: 1}},
		resetAtIndex: -1,
	}
	sinkA, sinkB := &fakeSink{}, &fakeSink{}
	codec := passthroughCodec()

	result, err := Decode(Options{
		Reader:          reader,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sinkA), newOpenFactory(sinkB)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return codec, nil },
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, Completed, result)
	assert.Equal(t, 1, sinkA.flushed)
	assert.Equal(t, 1, sinkB.flushed)
	assert.True(t, codec.finalized)
	assert.Len(t, sinkA.received, 2)
	assert.Len(t, sinkB.received, 2)
}

func TestDecodeCancelledMidDecodeSkipsFlush(t *testing.T) {
	reader := &fakeReader{
		tracks:       []TrackInfo{{ID: 1}},
		packets:      []Packet{{TrackID: 1}, {TrackID: 1}, {TrackID: 1}},
		resetAtIndex: -1,
	}
	sink := &fakeSink{}
	token := NewCancellationToken()
	codec := &fakeCodec{perPacket: func(p Packet) (PcmBuffer, error) {
		token.Cancel() // cancel once the first packet has been decoded
		return PcmBuffer{Spec: SignalSpec{SampleRate: 44100, Channels: 2}, Samples: []float32{0}}, nil
	}}

	result, err := Decode(Options{
		Reader:          reader,
		Cancellation:    token,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sink)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return codec, nil },
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, Cancelled, result)
	assert.Zero(t, sink.flushed)
	assert.Len(t, sink.received, 1)
}

func TestDecodeSkipsPacketsForOtherTracks(t *testing.T) {
	reader := &fakeReader{
		tracks: []TrackInfo{{ID: 1}},
		packets: []Packet{
			{TrackID: 9, Timestamp: 0},
			{TrackID: 1, Timestamp: 1},
			{TrackID: 9, Timestamp: 2},
		},
		resetAtIndex: -1,
	}
	sink := &fakeSink{}

	result, err := Decode(Options{
		Reader:          reader,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sink)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return passthroughCodec(), nil },
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, Completed, result)
	assert.Len(t, sink.received, 1)
}

func TestDecodeNonFatalDecodeErrorCountsAndContinues(t *testing.T) {
	reader := &fakeReader{
		tracks:       []TrackInfo{{ID: 1}},
		packets:      []Packet{{TrackID: 1, Timestamp: 0}, {TrackID: 1, Timestamp: 1}},
		resetAtIndex: -1,
	}
	sink := &fakeSink{}
	calls := 0
	codec := &fakeCodec{perPacket: func(p Packet) (PcmBuffer, error) {
		calls++
		if calls == 1 {
			return PcmBuffer{}, &DecodeError{Err: errors.New("corrupt frame")}
		}
		return PcmBuffer{Spec: SignalSpec{SampleRate: 44100, Channels: 2}, Samples: []float32{1}}, nil
	}}
	counter := &countingErrs{}

	result, err := Decode(Options{
		Reader:          reader,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sink)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return codec, nil },
	}, counter)

	require.NoError(t, err)
	assert.Equal(t, Completed, result)
	assert.Equal(t, 1, counter.n)
	assert.Len(t, sink.received, 1)
}

func TestDecodeFatalCodecErrorAbortsWithoutFlush(t *testing.T) {
	reader := &fakeReader{
		tracks:       []TrackInfo{{ID: 1}},
		packets:      []Packet{{TrackID: 1}},
		resetAtIndex: -1,
	}
	sink := &fakeSink{}
	boom := errors.New("boom")
	codec := &fakeCodec{perPacket: func(Packet) (PcmBuffer, error) { return PcmBuffer{}, boom }}

	result, err := Decode(Options{
		Reader:          reader,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sink)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return codec, nil },
	}, nil)

	require.Error(t, err)
	assert.Equal(t, Completed, result) // fatal errors are reported via err, not a special Result
	assert.Zero(t, sink.flushed)
}

func TestDecodeResetRequiredReselectsTrackAndSeeksZero(t *testing.T) {
	reader := &fakeReader{
		tracks:       []TrackInfo{{ID: 1}, {ID: 2}},
		packets:      []Packet{{TrackID: 1, Timestamp: 5}, {TrackID: 1, Timestamp: 6}},
		resetAtIndex: 1, // reset after first packet decodes fine
		seekResult:   SeekResult{RequiredTS: 5},
	}
	sink := &fakeSink{}
	seekSeconds := 1.0

	result, err := Decode(Options{
		Reader:          reader,
		SeekSeconds:     &seekSeconds,
		OpenOutputs:     []OpenOutputFactory{newOpenFactory(sink)},
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return passthroughCodec(), nil },
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, Completed, result)
	assert.Equal(t, 1, reader.seekCalls)
}

func TestDecodeNoSelectableTrackIsNoOp(t *testing.T) {
	reader := &fakeReader{tracks: []TrackInfo{{ID: 1, CodecNull: true}}}

	result, err := Decode(Options{
		Reader:          reader,
		NewCodecDecoder: func(TrackInfo) (CodecDecoder, error) { return passthroughCodec(), nil },
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, Completed, result)
}

func TestResultCodeMapping(t *testing.T) {
	assert.Equal(t, 0, Completed.Code())
	assert.Equal(t, 1, VerificationFailed.Code())
	assert.Equal(t, 2, Cancelled.Code())
}

func TestPcmBufferCloneIsIndependentCopy(t *testing.T) {
	original := PcmBuffer{Spec: SignalSpec{SampleRate: 1, Channels: 1}, Samples: []float32{1, 2, 3}}
	clone := original.Clone()
	clone.Samples[0] = 99

	assert.Equal(t, float32(1), original.Samples[0])
	assert.Equal(t, float32(99), clone.Samples[0])
}
