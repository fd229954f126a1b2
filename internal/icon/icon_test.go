package icon

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := map[string]int{
		"":     DefaultSize,
		"abc":  DefaultSize,
		"8":    MinSize,
		"128":  128,
		"4096": MaxSize,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSize(in), "size %q", in)
	}
}

func TestSiteIcon_Dimensions(t *testing.T) {
	b, err := SiteIcon(100)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.NotZero(t, a, "site icon corners are filled")
}

func TestAvatar_RoundAndDeterministic(t *testing.T) {
	a1, err := Avatar("AL", "profile-1", 64)
	require.NoError(t, err)
	a2, err := Avatar("AL", "profile-1", 64)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	img, err := png.Decode(bytes.NewReader(a1))
	require.NoError(t, err)
	_, _, _, corner := img.At(0, 0).RGBA()
	assert.Zero(t, corner, "avatar corners are transparent")
	_, _, _, centre := img.At(32, 4).RGBA()
	assert.NotZero(t, centre)
}

func TestColorFor_Stable(t *testing.T) {
	assert.Equal(t, ColorFor("abc"), ColorFor("abc"))
}
