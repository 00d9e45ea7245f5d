package localsink

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resonatefm/sessioncore/internal/decode"
)

func TestFloatToInt16ClampsFullScale(t *testing.T) {
	assert.Equal(t, uint16(math.MaxInt16), floatToInt16(2.0))
	assert.Equal(t, uint16(int16(math.MinInt16)), floatToInt16(-2.0))
	assert.Equal(t, uint16(0), floatToInt16(0))
}

func TestBufferSizeForFallsBackToDefault(t *testing.T) {
	assert.Equal(t, 2*time.Second, bufferSizeFor(decode.SignalSpec{}, 0))
	assert.Equal(t, 500*time.Millisecond, bufferSizeFor(decode.SignalSpec{}, 500*time.Millisecond))
}

func TestSinkSetVolumeClamps(t *testing.T) {
	s := &Sink{volume: 1.0}
	s.SetVolume(2.0)
	assert.Equal(t, 1.0, s.volume)
	s.SetVolume(-1.0)
	assert.Equal(t, 0.0, s.volume)
	s.SetVolume(0.5)
	assert.Equal(t, 0.5, s.volume)
}
