package stremio

// Manifest describes the capabilities of the addon.
// See https://github.com/Stremio/stremio-addon-sdk/blob/ddaa3b80def8a44e553349734dd02ec9c3fea52c/docs/api/responses/manifest.md
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Stremio accepts plain strings as well, but objects are a superset.
	ResourceItems []ResourceItem `json:"resources"`

	Types []string `json:"types"`
	// An empty slice is required for serializing to a JSON that Stremio expects
	Catalogs []CatalogItem `json:"catalogs"`

	// Optional
	IDprefixes    []string      `json:"idPrefixes,omitempty"`
	Background    string        `json:"background,omitempty"` // URL
	Logo          string        `json:"logo,omitempty"`       // URL
	ContactEmail  string        `json:"contactEmail,omitempty"`
	BehaviorHints BehaviorHints `json:"behaviorHints"`
}

type ResourceItem struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`

	// Optional
	IDprefixes []string `json:"idPrefixes,omitempty"`
}

type BehaviorHints struct {
	// Note: Must include `omitempty`, otherwise it will be included if this struct is used in another one, even if the field of the containing struct is marked as `omitempty`
	Adult        bool `json:"adult,omitempty"`
	Configurable bool `json:"configurable,omitempty"`
}

// CatalogItem represents a catalog in the manifest.
type CatalogItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`

	// Optional
	Extra []ExtraItem `json:"extra,omitempty"`
}

type ExtraItem struct {
	Name string `json:"name"`

	// Optional
	IsRequired   bool     `json:"isRequired"`
	Options      []string `json:"options,omitempty"`
	OptionsLimit int      `json:"optionsLimit,omitempty"`
}

// MetaPreviewItem represents a meta item and is meant to be used within catalog responses.
// See https://github.com/Stremio/stremio-addon-sdk/blob/ddaa3b80def8a44e553349734dd02ec9c3fea52c/docs/api/responses/meta.md
//
// Note: According to a Stremio developer the catalog response can include all fields from the MetaItem as well though!
type MetaPreviewItem struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster"` // URL

	// Optional
	PosterShape string   `json:"posterShape,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Description string   `json:"description,omitempty"`
	IMDBrating  string   `json:"imdbRating,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
}

// MetaItem represents a meta item and is meant to be used when info for a specific item was requested.
// Catalog responses contain MetaPreviewItem objects.
// See https://github.com/Stremio/stremio-addon-sdk/blob/ddaa3b80def8a44e553349734dd02ec9c3fea52c/docs/api/responses/meta.md
type MetaItem struct {
	MetaPreviewItem

	// Optional
	Background string      `json:"background,omitempty"` // URL
	Logo       string      `json:"logo,omitempty"`       // URL
	Released   string      `json:"released,omitempty"`   // Must be ISO 8601, e.g. "2010-12-06T05:00:00.000Z"
	Runtime    string      `json:"runtime,omitempty"`
	Videos     []VideoItem `json:"videos,omitempty"`
}

type VideoItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Released string `json:"released,omitempty"` // Must be ISO 8601, e.g. "2010-12-06T05:00:00.000Z"

	// Optional
	Thumbnail string `json:"thumbnail,omitempty"` // URL
	Available bool   `json:"available,omitempty"`
	Episode   int    `json:"episode"`
	Season    int    `json:"season"`
	Overview  string `json:"overview,omitempty"`
}

// StreamItem represents a stream for a MetaItem.
// See https://github.com/Stremio/stremio-addon-sdk/blob/ddaa3b80def8a44e553349734dd02ec9c3fea52c/docs/api/responses/stream.md
type StreamItem struct {
	URL string `json:"url"`

	// Optional
	// Shown in the left column of the stream list.
	Name string `json:"name,omitempty"`
	// Shown next to the name, can be multi-line.
	Description string `json:"description,omitempty"`
}

// CatalogResponse is the body of a catalog request.
type CatalogResponse struct {
	Metas []MetaPreviewItem `json:"metas"`
}

// MetaResponse is the body of a meta request.
type MetaResponse struct {
	Meta MetaItem `json:"meta"`
}

// StreamResponse is the body of a stream request.
type StreamResponse struct {
	Streams []StreamItem `json:"streams"`
}
