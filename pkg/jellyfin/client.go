package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	// ErrInvalidToken is returned when Jellyfin rejects an access token.
	ErrInvalidToken = errors.New("Invalid token")
	errNotFound     = errors.New("Not found")
)

// TokenCache is the interface that the client uses for caching the user an access token belongs to.
// Only valid tokens are cached.
type TokenCache interface {
	Set(token string, user User) error
	Get(token string) (User, time.Time, bool, error)
}

type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	// Max age of token cache entries
	CacheAge time.Duration
	// Client name and version reported to Jellyfin in the authorization header of session requests
	ClientName    string
	ClientVersion string
}

var DefaultClientOpts = ClientOptions{
	BaseURL:       "http://localhost:8096",
	Timeout:       5 * time.Second,
	CacheAge:      time.Hour,
	ClientName:    "Jellio",
	ClientVersion: "0.0.1",
}

// Client talks to the Jellyfin REST API on behalf of the users whose tokens it gets passed.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenCache    TokenCache
	cacheAge      time.Duration
	clientName    string
	clientVersion string
	logger        *zap.Logger
}

func NewClient(opts ClientOptions, tokenCache TokenCache, logger *zap.Logger) (*Client, error) {
	// Precondition check
	if opts.BaseURL == "" {
		return nil, errors.New("opts.BaseURL must not be empty")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("opts.BaseURL is not a valid URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = DefaultClientOpts.ClientName
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = DefaultClientOpts.ClientVersion
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		tokenCache:    tokenCache,
		cacheAge:      opts.CacheAge,
		clientName:    opts.ClientName,
		clientVersion: opts.ClientVersion,
		logger:        logger,
	}, nil
}

// TestToken checks the access token and returns the user it belongs to.
func (c *Client) TestToken(ctx context.Context, token string) (User, error) {
	c.logger.Debug("Testing token...")

	// Check cache first.
	// Only valid tokens are cached, because an invalid one might become valid when a user logs in again.
	user, created, found, err := c.tokenCache.Get(token)
	if err != nil {
		c.logger.Error("Couldn't decode token cache item", zap.Error(err))
	} else if !found {
		c.logger.Debug("Token not found in cache")
	} else if time.Since(created) > c.cacheAge {
		expiredSince := time.Since(created.Add(c.cacheAge))
		c.logger.Debug("Token cached as valid, but item is expired", zap.Duration("expiredSince", expiredSince))
	} else {
		c.logger.Debug("Token cached as valid", zap.String("userID", user.ID))
		return user, nil
	}

	resBytes, err := c.get(ctx, "/Users/Me", nil, token)
	if err != nil {
		return User{}, fmt.Errorf("Couldn't fetch user info from Jellyfin with the provided token: %w", err)
	}
	userID := gjson.GetBytes(resBytes, "Id").String()
	if userID == "" {
		return User{}, errors.New("Couldn't parse user info response from Jellyfin")
	}
	user = User{
		ID:    userID,
		Name:  gjson.GetBytes(resBytes, "Name").String(),
		Token: token,
	}

	c.logger.Debug("Token OK", zap.String("userID", user.ID))

	if err = c.tokenCache.Set(token, user); err != nil {
		c.logger.Error("Couldn't cache token", zap.Error(err), zap.String("userID", user.ID))
	}

	return user, nil
}

// UserLibraries returns the libraries (top level views) the user can see.
func (c *Client) UserLibraries(ctx context.Context, user User) ([]Library, error) {
	resBytes, err := c.get(ctx, "/Users/"+user.ID+"/Views", nil, user.Token)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get libraries: %w", err)
	}
	var res struct {
		Items []Library `json:"Items"`
	}
	if err = json.Unmarshal(resBytes, &res); err != nil {
		return nil, fmt.Errorf("Couldn't unmarshal libraries: %w", err)
	}
	return res.Items, nil
}

// Item returns the fully hydrated item. The boolean is false if the item doesn't exist or the user can't see it.
func (c *Client) Item(ctx context.Context, user User, id string) (Item, bool, error) {
	resBytes, err := c.get(ctx, "/Users/"+user.ID+"/Items/"+url.PathEscape(id), nil, user.Token)
	if errors.Is(err, errNotFound) {
		return Item{}, false, nil
	} else if err != nil {
		return Item{}, false, fmt.Errorf("Couldn't get item: %w", err)
	}
	var item Item
	if err = json.Unmarshal(resBytes, &item); err != nil {
		return Item{}, false, fmt.Errorf("Couldn't unmarshal item: %w", err)
	}
	return item, true, nil
}

// RootFolder returns the user's root folder, which contains all libraries.
func (c *Client) RootFolder(ctx context.Context, user User) (Item, error) {
	resBytes, err := c.get(ctx, "/Users/"+user.ID+"/Items/Root", nil, user.Token)
	if err != nil {
		return Item{}, fmt.Errorf("Couldn't get root folder: %w", err)
	}
	var item Item
	if err = json.Unmarshal(resBytes, &item); err != nil {
		return Item{}, fmt.Errorf("Couldn't unmarshal root folder: %w", err)
	}
	return item, nil
}

// Items runs an item query.
// Jellyfin doesn't support filtering by multiple ancestors, so for each of query.AncestorIDs a separate
// recursive query is run with the ancestor as parent, and the results are concatenated.
func (c *Client) Items(ctx context.Context, user User, query ItemQuery) (ItemsResult, error) {
	if len(query.AncestorIDs) == 0 {
		return c.items(ctx, user, query.values())
	}

	var result ItemsResult
	for _, ancestorID := range query.AncestorIDs {
		subQuery := query
		subQuery.AncestorIDs = nil
		subQuery.ParentID = ancestorID
		subQuery.Recursive = true
		res, err := c.items(ctx, user, subQuery.values())
		if err != nil {
			return ItemsResult{}, err
		}
		result.Items = append(result.Items, res.Items...)
		result.TotalRecordCount += res.TotalRecordCount
	}
	return result, nil
}

func (c *Client) items(ctx context.Context, user User, values url.Values) (ItemsResult, error) {
	resBytes, err := c.get(ctx, "/Users/"+user.ID+"/Items", values, user.Token)
	if err != nil {
		return ItemsResult{}, fmt.Errorf("Couldn't query items: %w", err)
	}
	var res ItemsResult
	if err = json.Unmarshal(resBytes, &res); err != nil {
		return ItemsResult{}, fmt.Errorf("Couldn't unmarshal items: %w", err)
	}
	return res, nil
}

// Episodes returns all episodes of a series, ordered by season and episode.
func (c *Client) Episodes(ctx context.Context, user User, seriesID string, fields ...string) ([]Item, error) {
	values := url.Values{}
	values.Set("UserId", user.ID)
	if len(fields) > 0 {
		values.Set("Fields", strings.Join(fields, ","))
	}
	resBytes, err := c.get(ctx, "/Shows/"+url.PathEscape(seriesID)+"/Episodes", values, user.Token)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get episodes: %w", err)
	}
	var res ItemsResult
	if err = json.Unmarshal(resBytes, &res); err != nil {
		return nil, fmt.Errorf("Couldn't unmarshal episodes: %w", err)
	}
	return res.Items, nil
}

func (q ItemQuery) values() url.Values {
	values := url.Values{}
	if q.Recursive {
		values.Set("Recursive", "true")
	}
	if len(q.IncludeItemTypes) > 0 {
		values.Set("IncludeItemTypes", strings.Join(q.IncludeItemTypes, ","))
	}
	if len(q.SortBy) > 0 {
		var fields, orders []string
		for _, sortField := range q.SortBy {
			fields = append(fields, sortField.Field)
			orders = append(orders, sortField.Order)
		}
		values.Set("SortBy", strings.Join(fields, ","))
		values.Set("SortOrder", strings.Join(orders, ","))
	}
	if q.Limit > 0 {
		values.Set("Limit", strconv.Itoa(q.Limit))
	}
	if q.StartIndex > 0 {
		values.Set("StartIndex", strconv.Itoa(q.StartIndex))
	}
	if q.SearchTerm != "" {
		values.Set("SearchTerm", q.SearchTerm)
	}
	if q.ParentID != "" {
		values.Set("ParentId", q.ParentID)
	}
	if len(q.ProviderIDs) > 0 {
		var providerIDs []string
		for provider, id := range q.ProviderIDs {
			providerIDs = append(providerIDs, provider+"."+id)
		}
		sort.Strings(providerIDs)
		values.Set("AnyProviderIdEquals", strings.Join(providerIDs, ","))
	}
	if q.ParentIndexNumber != nil {
		values.Set("ParentIndexNumber", strconv.Itoa(*q.ParentIndexNumber))
	}
	if q.IndexNumber != nil {
		values.Set("IndexNumber", strconv.Itoa(*q.IndexNumber))
	}
	if len(q.Fields) > 0 {
		values.Set("Fields", strings.Join(q.Fields, ","))
	}
	return values
}

func (c *Client) get(ctx context.Context, path string, values url.Values, token string) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(values) > 0 {
		reqURL += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("Couldn't create GET request: %w", err)
	}
	req.Header.Set("X-Emby-Token", token)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, authHeader string) ([]byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("Couldn't marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("Couldn't create POST request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Couldn't send %v request: %w", req.Method, err)
	}
	defer res.Body.Close()

	// Check server response
	if res.StatusCode < 200 || res.StatusCode > 299 {
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return nil, ErrInvalidToken
		case http.StatusNotFound:
			return nil, errNotFound
		}
		resBody, _ := io.ReadAll(res.Body)
		// Jellyfin returns RFC 7807 problem details for some errors
		if msg := gjson.GetBytes(resBody, "title").String(); msg != "" {
			return nil, fmt.Errorf("bad HTTP response status: %v (%v request to '%v'; error: '%v')", res.Status, req.Method, req.URL.Path, msg)
		} else if len(resBody) == 0 {
			return nil, fmt.Errorf("bad HTTP response status: %v (%v request to '%v')", res.Status, req.Method, req.URL.Path)
		}
		return nil, fmt.Errorf("bad HTTP response status: %v (%v request to '%v'; response body: '%s')", res.Status, req.Method, req.URL.Path, resBody)
	}

	return io.ReadAll(res.Body)
}
