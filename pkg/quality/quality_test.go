package quality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolutionKnown(t *testing.T) {
	tests := []struct {
		width, height int
		expected      string
	}{
		{7680, 4320, "8K"},
		{3840, 2160, "4K"},
		{3840, 2076, "4K"},
		{2560, 1440, "1440p"},
		{1920, 1080, "1080p"},
		{1280, 720, "720p"},
		{854, 480, "480p"},
		{640, 360, "360p"},
		{426, 240, "240p"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, Resolution(tt.width, tt.height), "%dx%d", tt.width, tt.height)
	}
}

func TestResolutionLadder(t *testing.T) {
	tests := []struct {
		width, height int
		expected      string
	}{
		{8192, 4320, "8K+"},
		{3996, 2160, "4K"},
		{1920, 800, "1080p"},
		{1916, 1036, "720p"},
		{1440, 1080, "720p"},
		{720, 576, "360p"},
		{480, 272, "240p"},
		{320, 240, "320x240"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, Resolution(tt.width, tt.height), "%dx%d", tt.width, tt.height)
	}
}

func TestResolutionMonotonic(t *testing.T) {
	// Heights that don't appear in the exact-match table
	for _, height := range []int{100, 817, 1234} {
		prev := 0
		for width := 1; width <= 9000; width++ {
			tier := Tier(Resolution(width, height))
			require.GreaterOrEqual(t, tier, prev, "width %d", width)
			prev = tier
		}
	}
}

func TestIsHDR(t *testing.T) {
	require.True(t, IsHDR("bt2020-10", ""))
	require.True(t, IsHDR("BT2100", ""))
	require.True(t, IsHDR("", "bt2020nc"))
	require.True(t, IsHDR("bt709", "BT2020NC"))
	require.False(t, IsHDR("smpte2084", "bt709"))
	require.False(t, IsHDR("", ""))
}

func TestIsDolbyVision(t *testing.T) {
	require.True(t, IsDolbyVision("smpte2084"))
	require.True(t, IsDolbyVision("SMPTE2084"))
	require.False(t, IsDolbyVision("bt709"))
	require.False(t, IsDolbyVision(""))
}

func TestInspect(t *testing.T) {
	// HDR and DV are not mutually exclusive
	info := Inspect(Video{
		Width:         3840,
		Height:        2160,
		Codec:         "hevc",
		ColorTransfer: "smpte2084",
		ColorSpace:    "bt2020nc",
	})
	require.Equal(t, Info{Resolution: "4K", HDR: true, DolbyVision: true, Codec: "HEVC"}, info)
	require.Equal(t, []string{"4K", "HDR", "DV", "HEVC"}, info.Labels())

	// Unknown height suppresses the resolution only
	info = Inspect(Video{Width: 1920, Codec: "h264"})
	require.Equal(t, Info{Codec: "H264"}, info)
	require.Equal(t, []string{"H264"}, info.Labels())

	require.Empty(t, Inspect(Video{}).Labels())
}
