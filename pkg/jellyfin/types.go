package jellyfin

import "time"

// Item kinds as reported in the "Type" field.
const (
	KindMovie   = "Movie"
	KindSeries  = "Series"
	KindEpisode = "Episode"
)

// Collection types of libraries.
const (
	CollectionMovies  = "movies"
	CollectionTVShows = "tvshows"
)

// Media stream types.
const (
	StreamVideo    = "Video"
	StreamAudio    = "Audio"
	StreamSubtitle = "Subtitle"
)

// Series status that means no end year is known yet.
const StatusContinuing = "Continuing"

// User is an authenticated Jellyfin user.
type User struct {
	ID    string
	Name  string
	Token string
}

// Library is a top level view of a user, e.g. "Movies".
type Library struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

type MediaStream struct {
	Type          string `json:"Type"`
	Codec         string `json:"Codec"`
	Language      string `json:"Language"`
	ColorTransfer string `json:"ColorTransfer"`
	ColorSpace    string `json:"ColorSpace"`
	Width         *int   `json:"Width,omitempty"`
	Height        *int   `json:"Height,omitempty"`
}

type MediaSource struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name"`
	Size         *int64        `json:"Size,omitempty"`
	MediaStreams []MediaStream `json:"MediaStreams"`
}

// FirstVideoStream returns nil if the source doesn't have a video stream.
func (s MediaSource) FirstVideoStream() *MediaStream {
	for i := range s.MediaStreams {
		if s.MediaStreams[i].Type == StreamVideo {
			return &s.MediaStreams[i]
		}
	}
	return nil
}

// AudioStreams returns the audio streams in their original order.
func (s MediaSource) AudioStreams() []MediaStream {
	var res []MediaStream
	for _, stream := range s.MediaStreams {
		if stream.Type == StreamAudio {
			res = append(res, stream)
		}
	}
	return res
}

// Item is a movie, series, episode or folder, hydrated with the fields that were requested.
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	IsFolder          bool              `json:"IsFolder"`
	Overview          string            `json:"Overview"`
	PremiereDate      *time.Time        `json:"PremiereDate,omitempty"`
	EndDate           *time.Time        `json:"EndDate,omitempty"`
	Status            string            `json:"Status"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	Genres            []string          `json:"Genres"`
	CommunityRating   *float64          `json:"CommunityRating,omitempty"`
	RunTimeTicks      *int64            `json:"RunTimeTicks,omitempty"`
	ImageTags         map[string]string `json:"ImageTags"`
	BackdropImageTags []string          `json:"BackdropImageTags"`
	IndexNumber       *int              `json:"IndexNumber,omitempty"`
	ParentIndexNumber *int              `json:"ParentIndexNumber,omitempty"`
	SeriesID          string            `json:"SeriesId"`
	MediaSources      []MediaSource     `json:"MediaSources"`
}

// IMDbID returns the "Imdb" provider ID, or an empty string.
func (i Item) IMDbID() string {
	return i.ProviderIDs[ProviderIMDb]
}

// HasImage reports whether the item has an image tag of the given type, e.g. "Logo".
func (i Item) HasImage(imageType string) bool {
	_, ok := i.ImageTags[imageType]
	return ok
}

// ProviderIMDb is the provider ID key for IMDb IDs.
const ProviderIMDb = "Imdb"

// ItemsResult is the result of an item query.
type ItemsResult struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Sort orders.
const (
	Ascending  = "Ascending"
	Descending = "Descending"
)

// SortField is one level of an item query's ordering.
type SortField struct {
	Field string
	Order string
}

// ItemQuery is a filtered, sorted and paginated item search.
// Zero values mean "no restriction".
type ItemQuery struct {
	Recursive        bool
	IncludeItemTypes []string
	SortBy           []SortField
	Limit            int
	StartIndex       int
	SearchTerm       string
	ParentID         string
	// Restricts the results to descendants of any of the given items.
	AncestorIDs []string
	// Matches items that have any of the given provider IDs.
	ProviderIDs       map[string]string
	ParentIndexNumber *int
	IndexNumber       *int
	Fields            []string
}

// Device identifies the client a session belongs to.
type Device struct {
	ID      string
	Name    string
	Client  string
	Version string
}

type PlayState struct {
	PositionTicks int64 `json:"PositionTicks"`
	CanSeek       bool  `json:"CanSeek"`
	IsPaused      bool  `json:"IsPaused"`
}

type NowPlayingItem struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Session is an entry of Jellyfin's active sessions.
type Session struct {
	ID                 string          `json:"Id"`
	UserID             string          `json:"UserId"`
	UserName           string          `json:"UserName"`
	Client             string          `json:"Client"`
	DeviceName         string          `json:"DeviceName"`
	DeviceID           string          `json:"DeviceId"`
	ApplicationVersion string          `json:"ApplicationVersion"`
	LastActivityDate   time.Time       `json:"LastActivityDate"`
	PlayState          *PlayState      `json:"PlayState,omitempty"`
	NowPlayingItem     *NowPlayingItem `json:"NowPlayingItem,omitempty"`
}

// PlaybackReport is the play state of one item.
type PlaybackReport struct {
	ItemID        string
	PositionTicks int64
	IsPaused      bool
	CanSeek       bool
}

// SessionUpdate describes what to tell Jellyfin about a session.
// With neither NowPlaying nor Stopped set, the session's activity is only refreshed.
type SessionUpdate struct {
	SessionID  string
	Device     Device
	NowPlaying *PlaybackReport
	Stopped    *PlaybackReport
}
