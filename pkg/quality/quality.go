// Package quality derives human-facing labels from technical video stream attributes.
package quality

import (
	"strconv"
	"strings"
)

type dimensions struct {
	width, height int
}

// Well-known resolutions. Anything else goes through the width ladder in Resolution.
var knownResolutions = map[dimensions]string{
	{7680, 4320}: "8K",
	{3840, 2160}: "4K",
	{3840, 2076}: "4K", // Common 4K cinema crop
	{2560, 1440}: "1440p",
	{1920, 1080}: "1080p",
	{1280, 720}:  "720p",
	{854, 480}:   "480p",
	{640, 360}:   "360p",
	{426, 240}:   "240p",
}

// Ordered from widest to narrowest, the first match wins.
var widthLadder = []struct {
	minWidth int
	label    string
}{
	{7680, "8K+"},
	{3840, "4K"},
	{2560, "1440p"},
	{1920, "1080p"},
	{1280, "720p"},
	{854, "480p"},
	{640, "360p"},
	{426, "240p"},
}

// Resolution returns a label like "1080p" or "4K" for the given pixel dimensions.
// Exact matches of common resolutions are checked first, then the width alone decides.
// Streams narrower than 426 pixels are labeled with their dimensions, e.g. "320x240".
func Resolution(width, height int) string {
	if label, ok := knownResolutions[dimensions{width, height}]; ok {
		return label
	}
	for _, step := range widthLadder {
		if width >= step.minWidth {
			return step.label
		}
	}
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}

// Tier ranks a label returned by Resolution. Higher is better, unknown labels are 0.
func Tier(label string) int {
	switch label {
	case "8K+":
		return 9
	case "8K":
		return 8
	case "4K":
		return 7
	case "1440p":
		return 6
	case "1080p":
		return 5
	case "720p":
		return 4
	case "480p":
		return 3
	case "360p":
		return 2
	case "240p":
		return 1
	default:
		return 0
	}
}

// IsHDR reports whether the color transfer (or, as a fallback, the color space) hints at a BT.2020 / BT.2100 stream.
func IsHDR(colorTransfer, colorSpace string) bool {
	if colorTransfer != "" && (containsFold(colorTransfer, "2020") || containsFold(colorTransfer, "2100")) {
		return true
	}
	return colorSpace != "" && containsFold(colorSpace, "2020")
}

// IsDolbyVision reports whether the color transfer is SMPTE ST 2084 (PQ).
// This is checked independently of IsHDR, so a stream can be flagged as both.
func IsDolbyVision(colorTransfer string) bool {
	return colorTransfer != "" && containsFold(colorTransfer, "2084")
}

// Video holds the raw attributes of a video stream that are relevant for the labels.
// Zero values mean "unknown".
type Video struct {
	Width         int
	Height        int
	Codec         string
	ColorTransfer string
	ColorSpace    string
}

// Info is the result of Inspect.
type Info struct {
	// Empty if width or height are unknown.
	Resolution  string
	HDR         bool
	DolbyVision bool
	// Uppercased, empty if unknown.
	Codec string
}

// Inspect derives all labels of a video stream at once.
func Inspect(v Video) Info {
	info := Info{
		HDR:         IsHDR(v.ColorTransfer, v.ColorSpace),
		DolbyVision: IsDolbyVision(v.ColorTransfer),
		Codec:       strings.ToUpper(v.Codec),
	}
	if v.Width > 0 && v.Height > 0 {
		info.Resolution = Resolution(v.Width, v.Height)
	}
	return info
}

// Labels returns the non-empty labels in display order: resolution, HDR, DV, codec.
func (i Info) Labels() []string {
	var labels []string
	if i.Resolution != "" {
		labels = append(labels, i.Resolution)
	}
	if i.HDR {
		labels = append(labels, "HDR")
	}
	if i.DolbyVision {
		labels = append(labels, "DV")
	}
	if i.Codec != "" {
		labels = append(labels, i.Codec)
	}
	return labels
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
