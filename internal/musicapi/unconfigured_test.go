package musicapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resonatefm/sessioncore/internal/model"
)

func TestUnconfiguredReportsItself(t *testing.T) {
	u := Unconfigured{}
	_, err := u.Track(context.Background(), model.NewStringId(model.SourceLibrary, "t1"))
	assert.True(t, errors.Is(err, ErrUnconfigured))

	_, err = u.TrackSource(context.Background(), model.NewStringId(model.SourceLibrary, "t1"), model.PlaybackQuality{})
	assert.True(t, errors.Is(err, ErrUnconfigured))
}
