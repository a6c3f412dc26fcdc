// Package addon implements the Stremio addon resources (manifest, catalog, meta, stream)
// on top of a user's Jellyfin library, plus the playback reports of the player.
package addon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/doingodswork/jellio/pkg/format"
	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/stremio"
)

var (
	// ErrNotFound means an unknown library, catalog, item or series.
	ErrNotFound = errors.New("Not found")
	// ErrBadRequest means a mismatch between the requested type and the item kind, or a malformed request.
	ErrBadRequest = errors.New("Bad request")
)

// requestError carries a message for the client and unwraps to one of the sentinel errors.
type requestError struct {
	kind error
	msg  string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.kind }

func badRequest(msg string) error {
	return &requestError{kind: ErrBadRequest, msg: msg}
}

const (
	manifestID      = "com.stremio.jellio"
	manifestVersion = "0.0.1"
	manifestName    = "Jellio"
	contactEmail    = "support@jellio.stream"

	pageSize = 100
)

// Library is the part of Jellyfin's API the addon reads from.
type Library interface {
	UserLibraries(ctx context.Context, user jellyfin.User) ([]jellyfin.Library, error)
	Item(ctx context.Context, user jellyfin.User, id string) (jellyfin.Item, bool, error)
	RootFolder(ctx context.Context, user jellyfin.User) (jellyfin.Item, error)
	Items(ctx context.Context, user jellyfin.User, query jellyfin.ItemQuery) (jellyfin.ItemsResult, error)
	Episodes(ctx context.Context, user jellyfin.User, seriesID string, fields ...string) ([]jellyfin.Item, error)
}

// Reporter gets notified about playback related events.
// It must not fail the request, which is why there are no return values.
type Reporter interface {
	StreamResolved(ctx context.Context, user jellyfin.User, item jellyfin.Item)
	Progress(ctx context.Context, user jellyfin.User, item jellyfin.Item, positionTicks int64, isPaused bool)
	Stopped(ctx context.Context, user jellyfin.User, item jellyfin.Item, positionTicks int64)
}

// UserData is the per-installation configuration, encoded in the first path segment of each request.
type UserData struct {
	AuthToken string `json:"authToken"`
	// IDs of the libraries that are exposed as catalogs
	Libraries  []string `json:"libraries"`
	ServerName string   `json:"serverName"`
}

// ProgressRequest is the body of a playback progress report.
type ProgressRequest struct {
	ItemID        string `json:"itemId"`
	PositionTicks int64  `json:"positionTicks"`
	IsPaused      bool   `json:"isPaused"`
}

// StopRequest is the body of a playback stop report.
type StopRequest struct {
	ItemID        string `json:"itemId"`
	PositionTicks int64  `json:"positionTicks"`
}

type Addon struct {
	library  Library
	reporter Reporter
	// Base URL of Jellyfin as reachable by Stremio, for image and stream URLs
	publicURL string
	logger    *zap.Logger
}

func New(library Library, reporter Reporter, publicURL string, logger *zap.Logger) *Addon {
	return &Addon{
		library:   library,
		reporter:  reporter,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
	}
}

// Manifest returns the manifest with one catalog per configured movie or TV show library.
// If the user can't see all configured libraries, ErrNotFound is returned.
func (a *Addon) Manifest(ctx context.Context, user jellyfin.User, userData UserData) (stremio.Manifest, error) {
	userLibraries, err := a.library.UserLibraries(ctx, user)
	if err != nil {
		return stremio.Manifest{}, fmt.Errorf("Couldn't get user libraries: %w", err)
	}

	configured := make(map[string]struct{}, len(userData.Libraries))
	for _, id := range userData.Libraries {
		configured[normalizeID(id)] = struct{}{}
	}
	var libraries []jellyfin.Library
	for _, lib := range userLibraries {
		if _, ok := configured[normalizeID(lib.ID)]; ok {
			libraries = append(libraries, lib)
		}
	}
	if len(libraries) != len(userData.Libraries) {
		a.logger.Debug("Configured libraries aren't a subset of the user's libraries",
			zap.String("userID", user.ID), zap.Int("configured", len(userData.Libraries)), zap.Int("found", len(libraries)))
		return stremio.Manifest{}, ErrNotFound
	}

	catalogs := []stremio.CatalogItem{}
	var libraryNames []string
	for _, lib := range libraries {
		libraryNames = append(libraryNames, lib.Name)
		var stremioType string
		switch lib.CollectionType {
		case jellyfin.CollectionMovies:
			stremioType = format.TypeMovie
		case jellyfin.CollectionTVShows:
			stremioType = format.TypeSeries
		default:
			continue
		}
		catalogs = append(catalogs, stremio.CatalogItem{
			Type: stremioType,
			ID:   lib.ID,
			Name: lib.Name + " | " + userData.ServerName,
			Extra: []stremio.ExtraItem{
				{Name: "skip"},
				{Name: "search"},
			},
		})
	}

	types := []string{format.TypeMovie, format.TypeSeries}
	return stremio.Manifest{
		ID:          manifestID,
		Name:        manifestName,
		Description: fmt.Sprintf("Play movies and series from %v: %v", userData.ServerName, strings.Join(libraryNames, ", ")),
		Version:     manifestVersion,
		ResourceItems: []stremio.ResourceItem{
			{Name: "catalog", Types: types},
			{Name: "meta", Types: types, IDprefixes: []string{format.IDPrefix}},
			{Name: "stream", Types: types, IDprefixes: []string{"tt", format.IDPrefix}},
		},
		Types:        types,
		Catalogs:     catalogs,
		IDprefixes:   []string{"tt", format.IDPrefix},
		ContactEmail: contactEmail,
		BehaviorHints: stremio.BehaviorHints{
			Configurable: true,
		},
	}, nil
}

// ParseExtra parses the "extra" path segment of catalog requests, e.g. "search=foo&skip=100".
// Pairs that aren't of the form key=value are ignored.
func ParseExtra(extra string) map[string]string {
	res := map[string]string{}
	if extra == "" {
		return res
	}
	for _, pair := range strings.Split(extra, "&") {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			continue
		}
		res[parts[0]] = parts[1]
	}
	return res
}

// Catalog returns one page of the movies and series of a library, newest first.
// extra can contain "skip" (the offset) and "search".
func (a *Addon) Catalog(ctx context.Context, user jellyfin.User, stremioType, catalogID, extra string) ([]stremio.MetaPreviewItem, error) {
	if err := checkType(stremioType); err != nil {
		return nil, err
	}
	zapFieldCatalogID := zap.String("catalogID", catalogID)

	userLibraries, err := a.library.UserLibraries(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get user libraries: %w", err)
	}
	var library *jellyfin.Library
	for i := range userLibraries {
		if normalizeID(userLibraries[i].ID) == normalizeID(catalogID) {
			library = &userLibraries[i]
			break
		}
	}
	if library == nil {
		a.logger.Debug("Catalog not found in the user's libraries", zapFieldCatalogID)
		return nil, ErrNotFound
	}

	// The library's folder, or the user's root folder if the library isn't one.
	// Results are always scoped to the library itself.
	folderID := library.ID
	libraryItem, found, err := a.library.Item(ctx, user, library.ID)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get library item: %w", err)
	}
	if !found || !libraryItem.IsFolder {
		root, err := a.library.RootFolder(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("Couldn't get root folder: %w", err)
		}
		folderID = root.ID
	}
	a.logger.Debug("Querying catalog folder", zapFieldCatalogID, zap.String("folderID", folderID))

	extras := ParseExtra(extra)
	skip := 0
	if skipString, ok := extras["skip"]; ok {
		if parsed, err := strconv.Atoi(skipString); err == nil {
			skip = parsed
		}
	}

	query := jellyfin.ItemQuery{
		Recursive:        true,
		IncludeItemTypes: []string{jellyfin.KindMovie, jellyfin.KindSeries},
		SortBy: []jellyfin.SortField{
			{Field: "ProductionYear", Order: jellyfin.Descending},
			{Field: "SortName", Order: jellyfin.Ascending},
		},
		Limit:      pageSize,
		StartIndex: skip,
		SearchTerm: extras["search"],
		ParentID:   library.ID,
		Fields:     []string{"ProviderIds", "Overview", "Genres"},
	}
	result, err := a.library.Items(ctx, user, query)
	if err != nil {
		return nil, fmt.Errorf("Couldn't query catalog items: %w", err)
	}

	metas := make([]stremio.MetaPreviewItem, 0, len(result.Items))
	for _, item := range result.Items {
		metas = append(metas, format.CatalogEntry(item, stremioType, a.publicURL))
	}
	a.logger.Debug("Catalog items", zapFieldCatalogID, zap.Int("skip", skip), zap.Int("count", len(metas)))
	return metas, nil
}

// Meta returns the meta item of "source:<id>", with the episodes as videos for series.
func (a *Addon) Meta(ctx context.Context, user jellyfin.User, stremioType, id string) (stremio.MetaItem, error) {
	if err := checkType(stremioType); err != nil {
		return stremio.MetaItem{}, err
	}
	itemID, ok := parseSourceID(id)
	if !ok {
		return stremio.MetaItem{}, ErrNotFound
	}

	var item jellyfin.Item
	var found bool
	var episodes []jellyfin.Item
	var episodesErr error
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, found, err = a.library.Item(gCtx, user, itemID)
		return err
	})
	if stremioType == format.TypeSeries {
		// Fails when the item isn't a series, which is reported below instead
		g.Go(func() error {
			episodes, episodesErr = a.library.Episodes(gCtx, user, itemID, "Overview")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stremio.MetaItem{}, fmt.Errorf("Couldn't get item: %w", err)
	}
	if !found {
		return stremio.MetaItem{}, ErrNotFound
	}

	meta := format.MetaRecord(item, stremioType, a.publicURL)
	if stremioType != format.TypeSeries {
		return meta, nil
	}
	if item.Type != jellyfin.KindSeries {
		return stremio.MetaItem{}, badRequest(fmt.Sprintf("Item %v is a %v, not a series", itemID, item.Type))
	}
	if episodesErr != nil {
		return stremio.MetaItem{}, fmt.Errorf("Couldn't get episodes: %w", episodesErr)
	}
	meta.Videos = make([]stremio.VideoItem, 0, len(episodes))
	for _, episode := range episodes {
		meta.Videos = append(meta.Videos, format.Video(episode, a.publicURL))
	}
	return meta, nil
}

// StreamsByID returns the streams of "source:<id>".
func (a *Addon) StreamsByID(ctx context.Context, user jellyfin.User, id string) ([]stremio.StreamItem, error) {
	itemID, ok := parseSourceID(id)
	if !ok {
		return nil, ErrNotFound
	}
	item, found, err := a.library.Item(ctx, user, itemID)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get item: %w", err)
	} else if !found {
		return nil, ErrNotFound
	}
	return a.streams(ctx, user, []jellyfin.Item{item}), nil
}

// StreamsByIMDbMovie returns the streams of all movies with the IMDb ID.
// Multiple copies of a movie in the library are all included.
func (a *Addon) StreamsByIMDbMovie(ctx context.Context, user jellyfin.User, imdbID string) ([]stremio.StreamItem, error) {
	result, err := a.library.Items(ctx, user, jellyfin.ItemQuery{
		Recursive:        true,
		IncludeItemTypes: []string{jellyfin.KindMovie},
		ProviderIDs:      map[string]string{jellyfin.ProviderIMDb: imdbID},
		Fields:           []string{"MediaSources", "ProviderIds"},
	})
	if err != nil {
		return nil, fmt.Errorf("Couldn't query movies: %w", err)
	}
	a.logger.Debug("Movies found by IMDb ID", zap.String("imdbID", imdbID), zap.Int("count", len(result.Items)))
	return a.streams(ctx, user, result.Items), nil
}

// StreamsByIMDbEpisode returns the streams of an episode of the series with the IMDb ID.
func (a *Addon) StreamsByIMDbEpisode(ctx context.Context, user jellyfin.User, imdbID string, season, episode int) ([]stremio.StreamItem, error) {
	zapFieldIMDbID := zap.String("imdbID", imdbID)

	seriesResult, err := a.library.Items(ctx, user, jellyfin.ItemQuery{
		Recursive:        true,
		IncludeItemTypes: []string{jellyfin.KindSeries},
		ProviderIDs:      map[string]string{jellyfin.ProviderIMDb: imdbID},
	})
	if err != nil {
		return nil, fmt.Errorf("Couldn't query series: %w", err)
	}
	if len(seriesResult.Items) == 0 {
		a.logger.Debug("No series found by IMDb ID", zapFieldIMDbID)
		return nil, ErrNotFound
	}
	seriesIDs := make([]string, 0, len(seriesResult.Items))
	for _, series := range seriesResult.Items {
		seriesIDs = append(seriesIDs, series.ID)
	}

	episodeResult, err := a.library.Items(ctx, user, jellyfin.ItemQuery{
		IncludeItemTypes:  []string{jellyfin.KindEpisode},
		AncestorIDs:       seriesIDs,
		ParentIndexNumber: &season,
		IndexNumber:       &episode,
		Fields:            []string{"MediaSources"},
	})
	if err != nil {
		return nil, fmt.Errorf("Couldn't query episodes: %w", err)
	}
	a.logger.Debug("Episodes found by IMDb ID", zapFieldIMDbID, zap.Int("season", season), zap.Int("episode", episode), zap.Int("count", len(episodeResult.Items)))
	return a.streams(ctx, user, episodeResult.Items), nil
}

// streams converts all media sources of the items and reports the first item to the session tracker.
func (a *Addon) streams(ctx context.Context, user jellyfin.User, items []jellyfin.Item) []stremio.StreamItem {
	res := []stremio.StreamItem{}
	for _, item := range items {
		res = append(res, format.Streams(item, a.publicURL, user.Token)...)
	}
	if len(items) > 0 {
		a.reporter.StreamResolved(ctx, user, items[0])
	}
	return res
}

// ReportProgress updates the play state of the user's Jellio session.
func (a *Addon) ReportProgress(ctx context.Context, user jellyfin.User, req ProgressRequest) error {
	item, err := a.playbackItem(ctx, user, req.ItemID)
	if err != nil {
		return err
	}
	a.reporter.Progress(ctx, user, item, req.PositionTicks, req.IsPaused)
	return nil
}

// ReportStop clears the play state of the user's Jellio session.
func (a *Addon) ReportStop(ctx context.Context, user jellyfin.User, req StopRequest) error {
	item, err := a.playbackItem(ctx, user, req.ItemID)
	if err != nil {
		return err
	}
	a.reporter.Stopped(ctx, user, item, req.PositionTicks)
	return nil
}

func (a *Addon) playbackItem(ctx context.Context, user jellyfin.User, id string) (jellyfin.Item, error) {
	if !strings.HasPrefix(strings.ToLower(id), format.IDPrefix) {
		return jellyfin.Item{}, badRequest("Invalid itemId format. Expected '" + format.IDPrefix + "guid'")
	}
	itemID, ok := parseSourceID(id)
	if !ok {
		return jellyfin.Item{}, badRequest("Invalid GUID format in itemId")
	}
	item, found, err := a.library.Item(ctx, user, itemID)
	if err != nil {
		return jellyfin.Item{}, fmt.Errorf("Couldn't get item: %w", err)
	} else if !found {
		return jellyfin.Item{}, ErrNotFound
	}
	return item, nil
}

// parseSourceID returns the item ID of "source:<guid>", in Jellyfin's format (no dashes).
func parseSourceID(id string) (string, bool) {
	if len(id) < len(format.IDPrefix) || !strings.EqualFold(id[:len(format.IDPrefix)], format.IDPrefix) {
		return "", false
	}
	guid, err := uuid.Parse(id[len(format.IDPrefix):])
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(guid.String(), "-", ""), true
}

// normalizeID makes GUIDs comparable, because Jellyfin writes them without dashes.
func normalizeID(id string) string {
	if guid, err := uuid.Parse(id); err == nil {
		return strings.ReplaceAll(guid.String(), "-", "")
	}
	return strings.ToLower(id)
}

func checkType(stremioType string) error {
	if stremioType != format.TypeMovie && stremioType != format.TypeSeries {
		return badRequest("Unsupported type: " + stremioType)
	}
	return nil
}
