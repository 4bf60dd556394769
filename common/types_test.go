package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFormatJSON(t *testing.T) {
	t.Parallel()

	var f ImageFormat
	require.NoError(t, json.Unmarshal([]byte(`"jpg"`), &f))
	assert.Equal(t, ImageFormatJPEG, f)

	b, err := json.Marshal(ImageFormatPNG)
	require.NoError(t, err)
	assert.Equal(t, `"png"`, string(b))

	_, err = ParseImageFormat("gif")
	assert.Error(t, err)
}

func TestLaunchModeText(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		var m LaunchMode
		require.NoError(t, m.UnmarshalText([]byte("port")))
		assert.Equal(t, LaunchModePort, m)

		b, err := LaunchModePipe.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "pipe", string(b))
	})
	t.Run("err/invalid", func(t *testing.T) {
		t.Parallel()

		var m LaunchMode
		assert.EqualError(t, m.UnmarshalText([]byte("socket")), `invalid launch mode: "socket"`)

		_, err := LaunchMode(9).MarshalText()
		assert.EqualError(t, err, "invalid launch mode: 9")
	})
}

func TestQuadMidpoint(t *testing.T) {
	t.Parallel()

	q := Quad{10, 20, 30, 20, 30, 40, 10, 40}
	assert.Equal(t, Point{X: 20, Y: 30}, q.Midpoint())
	assert.Equal(t, Point{}, Quad{1, 2}.Midpoint())
}
