package jellyfin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memTokenCache struct {
	lock    sync.Mutex
	users   map[string]User
	created map[string]time.Time
}

func newMemTokenCache() *memTokenCache {
	return &memTokenCache{
		users:   map[string]User{},
		created: map[string]time.Time{},
	}
}

func (c *memTokenCache) Set(token string, user User) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.users[token] = user
	c.created[token] = time.Now()
	return nil
}

func (c *memTokenCache) Get(token string) (User, time.Time, bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	user, found := c.users[token]
	return user, c.created[token], found, nil
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *memTokenCache) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts := DefaultClientOpts
	opts.BaseURL = server.URL + "/"
	cache := newMemTokenCache()
	client, err := NewClient(opts, cache, zap.NewNop())
	require.NoError(t, err)
	return client, cache
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(ClientOptions{}, newMemTokenCache(), zap.NewNop())
	require.Error(t, err)
}

func TestTestToken(t *testing.T) {
	calls := 0
	client, cache := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/Users/Me", r.URL.Path)
		if r.Header.Get("X-Emby-Token") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"Id":"u1","Name":"alice","Policy":{"IsAdministrator":false}}`)
	}))
	ctx := context.Background()

	user, err := client.TestToken(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, User{ID: "u1", Name: "alice", Token: "good"}, user)
	_, _, found, _ := cache.Get("good")
	require.True(t, found)

	// Second call is served from the cache
	_, err = client.TestToken(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = client.TestToken(ctx, "bad")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, _, found, _ = cache.Get("bad")
	require.False(t, found)
}

func TestItem(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Users/u1/Items/abc":
			_, _ = io.WriteString(w, `{
				"Id": "abc",
				"Name": "Inception",
				"Type": "Movie",
				"PremiereDate": "2010-07-15T00:00:00.0000000Z",
				"ProviderIds": {"Imdb": "tt1375666"},
				"ImageTags": {"Primary": "p"},
				"MediaSources": [{
					"Id": "src1",
					"Name": "Inception",
					"Size": 1000,
					"MediaStreams": [
						{"Type": "Video", "Codec": "hevc", "Width": 3840, "Height": 2160},
						{"Type": "Audio", "Codec": "aac", "Language": "eng"}
					]
				}]
			}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()
	user := User{ID: "u1", Token: "tok"}

	item, found, err := client.Item(ctx, user, "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "tt1375666", item.IMDbID())
	require.True(t, item.HasImage("Primary"))
	require.Equal(t, 2010, item.PremiereDate.Year())
	require.Len(t, item.MediaSources, 1)
	video := item.MediaSources[0].FirstVideoStream()
	require.NotNil(t, video)
	require.Equal(t, 3840, *video.Width)
	require.Len(t, item.MediaSources[0].AudioStreams(), 1)

	_, found, err = client.Item(ctx, user, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestItemsQuery(t *testing.T) {
	season, episode := 2, 5
	query := ItemQuery{
		Recursive:        true,
		IncludeItemTypes: []string{KindMovie, KindSeries},
		SortBy: []SortField{
			{Field: "ProductionYear", Order: Descending},
			{Field: "SortName", Order: Ascending},
		},
		Limit:             100,
		StartIndex:        200,
		SearchTerm:        "dark knight",
		ParentID:          "lib",
		ProviderIDs:       map[string]string{ProviderIMDb: "tt0468569"},
		ParentIndexNumber: &season,
		IndexNumber:       &episode,
		Fields:            []string{"ProviderIds", "Overview"},
	}
	expected := map[string][]string{
		"Recursive":           {"true"},
		"IncludeItemTypes":    {"Movie,Series"},
		"SortBy":              {"ProductionYear,SortName"},
		"SortOrder":           {"Descending,Ascending"},
		"Limit":               {"100"},
		"StartIndex":          {"200"},
		"SearchTerm":          {"dark knight"},
		"ParentId":            {"lib"},
		"AnyProviderIdEquals": {"Imdb.tt0468569"},
		"ParentIndexNumber":   {"2"},
		"IndexNumber":         {"5"},
		"Fields":              {"ProviderIds,Overview"},
	}
	if diff := cmp.Diff(expected, map[string][]string(query.values())); diff != "" {
		t.Errorf("values() mismatch (-want +got):\n%s", diff)
	}
}

func TestItemsAncestors(t *testing.T) {
	var parents []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Users/u1/Items", r.URL.Path)
		parentID := r.URL.Query().Get("ParentId")
		parents = append(parents, parentID)
		require.Equal(t, "true", r.URL.Query().Get("Recursive"))
		res := ItemsResult{
			Items:            []Item{{ID: "ep-of-" + parentID}},
			TotalRecordCount: 1,
		}
		_ = json.NewEncoder(w).Encode(res)
	}))

	result, err := client.Items(context.Background(), User{ID: "u1"}, ItemQuery{
		IncludeItemTypes: []string{KindEpisode},
		AncestorIDs:      []string{"s1", "s2"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, parents)
	require.Equal(t, 2, result.TotalRecordCount)
	require.Equal(t, "ep-of-s1", result.Items[0].ID)
	require.Equal(t, "ep-of-s2", result.Items[1].ID)
}

func TestBadStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"title":"Something broke"}`)
	}))
	_, err := client.UserLibraries(context.Background(), User{ID: "u1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Something broke")
}

func TestSessions(t *testing.T) {
	device := Device{ID: "dev1", Name: "Jellio"}
	user := User{ID: "u1", Token: "tok"}
	var posts []string
	var lastBody map[string]interface{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts = append(posts, r.URL.Path)
			require.Equal(t, `MediaBrowser Client="Jellio", Device="Jellio", DeviceId="dev1", Version="0.0.1", Token="tok"`, r.Header.Get("Authorization"))
			lastBody = nil
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lastBody))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		require.Equal(t, "/Sessions", r.URL.Path)
		require.Equal(t, "tok", r.Header.Get("X-Emby-Token"))
		_, _ = io.WriteString(w, `[
			{"Id":"s0","UserId":"u2","DeviceName":"Jellio","DeviceId":"other"},
			{"Id":"s1","UserId":"u1","DeviceName":"Jellio","DeviceId":"dev1","LastActivityDate":"2024-01-01T12:00:00Z"}
		]`)
	}))
	ctx := context.Background()

	sessions, err := client.Sessions(ctx, user)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "s1", sessions[0].ID)

	session, err := client.CreateSession(ctx, user, device)
	require.NoError(t, err)
	require.Equal(t, "s1", session.ID)
	require.Equal(t, []string{"/Sessions/Capabilities/Full"}, posts)

	err = client.UpdateSession(ctx, user, SessionUpdate{
		SessionID:  "s1",
		Device:     device,
		NowPlaying: &PlaybackReport{ItemID: "abc", PositionTicks: 100, IsPaused: true, CanSeek: true},
	})
	require.NoError(t, err)
	require.Equal(t, "/Sessions/Playing/Progress", posts[1])
	require.Equal(t, "abc", lastBody["ItemId"])
	require.Equal(t, true, lastBody["IsPaused"])

	err = client.UpdateSession(ctx, user, SessionUpdate{
		SessionID: "s1",
		Device:    device,
		Stopped:   &PlaybackReport{ItemID: "abc", PositionTicks: 200},
	})
	require.NoError(t, err)
	require.Equal(t, "/Sessions/Playing/Stopped", posts[2])
	require.Equal(t, float64(200), lastBody["PositionTicks"])

	err = client.UpdateSession(ctx, user, SessionUpdate{SessionID: "s1", Device: device})
	require.NoError(t, err)
	require.Equal(t, "/Sessions/Capabilities/Full", posts[3])
}
