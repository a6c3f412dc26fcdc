// Package format turns Jellyfin items into the Stremio wire types,
// including the display strings of streams.
package format

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/quality"
	"github.com/doingodswork/jellio/pkg/stremio"
)

// IDPrefix is the prefix of IDs that refer to Jellyfin items directly, e.g. "source:<guid>".
const IDPrefix = "source:"

// Stremio types
const (
	TypeMovie  = "movie"
	TypeSeries = "series"
)

const fallbackDescription = "Jellio Stream"

// 1 minute in Jellyfin ticks (100ns)
const ticksPerMinute = 600000000

// Image kinds, as path segments of Jellyfin's image endpoint.
const (
	ImagePrimary  = "Primary"
	ImageLogo     = "Logo"
	ImageBackdrop = "Backdrop/0"
)

// SourceID returns the ID under which the item is exposed when it has no IMDb ID.
func SourceID(itemID string) string {
	return IDPrefix + itemID
}

// ImageURL returns the URL of an image of the item on the public Jellyfin server.
func ImageURL(baseURL, itemID, kind string) string {
	return baseURL + "/Items/" + itemID + "/Images/" + kind
}

// StreamURL returns the URL of the static (not transcoded) stream of one of the item's media sources.
// The token is part of the URL because players can't set headers.
func StreamURL(baseURL, itemID, sourceID, token string) string {
	values := url.Values{}
	values.Set("mediaSourceId", sourceID)
	values.Set("static", "true")
	values.Set("api_key", token)
	return baseURL + "/Videos/" + itemID + "/stream?" + values.Encode()
}

// ReleaseInfo returns the premiere year, e.g. "2010".
// For series it's a range like "2008-2013", or "2008-" when the series is still running
// or the end year is unknown or the same as the premiere year.
func ReleaseInfo(item jellyfin.Item, stremioType string) string {
	if item.PremiereDate == nil {
		return ""
	}
	premiereYear := item.PremiereDate.Year()
	res := strconv.Itoa(premiereYear)
	if stremioType != TypeSeries {
		return res
	}
	res += "-"
	if item.Status != jellyfin.StatusContinuing && item.EndDate != nil && item.EndDate.Year() != premiereYear {
		res += strconv.Itoa(item.EndDate.Year())
	}
	return res
}

// CatalogEntry converts an item to a catalog entry.
func CatalogEntry(item jellyfin.Item, stremioType, baseURL string) stremio.MetaPreviewItem {
	id := item.IMDbID()
	if id == "" {
		id = SourceID(item.ID)
	}
	res := stremio.MetaPreviewItem{
		ID:          id,
		Type:        stremioType,
		Name:        item.Name,
		Poster:      ImageURL(baseURL, item.ID, ImagePrimary),
		PosterShape: "poster",
		Genres:      item.Genres,
		Description: item.Overview,
		ReleaseInfo: ReleaseInfo(item, stremioType),
	}
	if item.CommunityRating != nil {
		res.IMDBrating = strconv.FormatFloat(*item.CommunityRating, 'f', 1, 64)
	}
	return res
}

// MetaRecord converts an item to a meta item with details.
// Videos aren't included, see Video.
func MetaRecord(item jellyfin.Item, stremioType, baseURL string) stremio.MetaItem {
	res := stremio.MetaItem{
		MetaPreviewItem: CatalogEntry(item, stremioType, baseURL),
		Released:        released(item.PremiereDate),
	}
	if item.RunTimeTicks != nil && *item.RunTimeTicks != 0 {
		res.Runtime = fmt.Sprintf("%d min", *item.RunTimeTicks/ticksPerMinute)
	}
	if item.HasImage("Logo") {
		res.Logo = ImageURL(baseURL, item.ID, ImageLogo)
	}
	if len(item.BackdropImageTags) > 0 {
		res.Background = ImageURL(baseURL, item.ID, ImageBackdrop)
	}
	return res
}

// Video converts an episode to a video of a series' meta item.
func Video(episode jellyfin.Item, baseURL string) stremio.VideoItem {
	res := stremio.VideoItem{
		ID:        SourceID(episode.ID),
		Title:     episode.Name,
		Thumbnail: ImageURL(baseURL, episode.ID, ImagePrimary),
		Available: true,
		Overview:  episode.Overview,
		Released:  released(episode.PremiereDate),
	}
	if episode.IndexNumber != nil {
		res.Episode = *episode.IndexNumber
	}
	if episode.ParentIndexNumber != nil {
		res.Season = *episode.ParentIndexNumber
	}
	return res
}

// Streams returns one stream per media source of the item.
func Streams(item jellyfin.Item, baseURL, token string) []stremio.StreamItem {
	res := make([]stremio.StreamItem, 0, len(item.MediaSources))
	for _, source := range item.MediaSources {
		res = append(res, Stream(item, source, baseURL, token))
	}
	return res
}

func Stream(item jellyfin.Item, source jellyfin.MediaSource, baseURL, token string) stremio.StreamItem {
	return stremio.StreamItem{
		URL:         StreamURL(baseURL, item.ID, source.ID, token),
		Name:        StreamName(item, source),
		Description: StreamDescription(item, source),
	}
}

// StreamName returns the title with the year, and in a second line the quality of the source's video,
// e.g. "Inception (2010)\n4K | HDR | HEVC".
func StreamName(item jellyfin.Item, source jellyfin.MediaSource) string {
	title := item.Name
	if item.PremiereDate != nil {
		title += " (" + strconv.Itoa(item.PremiereDate.Year()) + ")"
	}
	labels := videoInfo(source).Labels()
	if len(labels) == 0 {
		return title
	}
	return title + "\n" + strings.Join(labels, " | ")
}

// StreamDescription lists the source name, audio languages and codecs, file size and resolution.
func StreamDescription(item jellyfin.Item, source jellyfin.MediaSource) string {
	var parts []string

	if source.Name != "" && source.Name != item.Name {
		parts = append(parts, source.Name)
	}

	var languages, codecs []string
	for _, stream := range source.AudioStreams() {
		if stream.Language != "" {
			languages = appendUnique(languages, stream.Language)
		}
		if stream.Codec != "" {
			codecs = appendUnique(codecs, strings.ToUpper(stream.Codec))
		}
	}
	if len(languages) > 0 {
		parts = append(parts, "Audio: "+strings.Join(languages, ", "))
	}
	if len(codecs) > 0 {
		parts = append(parts, "Codec: "+strings.Join(codecs, ", "))
	}

	if source.Size != nil && *source.Size > 0 {
		sizeGB := float64(*source.Size) / (1024 * 1024 * 1024)
		parts = append(parts, fmt.Sprintf("Size: %.1f GB", sizeGB))
	}

	if res := videoInfo(source).Resolution; res != "" {
		parts = append(parts, "Jellyfin "+res)
	}

	if len(parts) == 0 {
		return fallbackDescription
	}
	return strings.Join(parts, " | ")
}

func videoInfo(source jellyfin.MediaSource) quality.Info {
	stream := source.FirstVideoStream()
	if stream == nil {
		return quality.Info{}
	}
	v := quality.Video{
		Codec:         stream.Codec,
		ColorTransfer: stream.ColorTransfer,
		ColorSpace:    stream.ColorSpace,
	}
	if stream.Width != nil {
		v.Width = *stream.Width
	}
	if stream.Height != nil {
		v.Height = *stream.Height
	}
	return quality.Inspect(v)
}

func released(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func appendUnique(s []string, v string) []string {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}
