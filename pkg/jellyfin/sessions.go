package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Sessions returns the active sessions of the user.
func (c *Client) Sessions(ctx context.Context, user User) ([]Session, error) {
	return c.sessions(ctx, user, nil)
}

func (c *Client) sessions(ctx context.Context, user User, values url.Values) ([]Session, error) {
	resBytes, err := c.get(ctx, "/Sessions", values, user.Token)
	if err != nil {
		return nil, fmt.Errorf("Couldn't get sessions: %w", err)
	}
	var sessions []Session
	if err = json.Unmarshal(resBytes, &sessions); err != nil {
		return nil, fmt.Errorf("Couldn't unmarshal sessions: %w", err)
	}
	// Admins see the sessions of all users
	n := 0
	for _, session := range sessions {
		if session.UserID == user.ID {
			sessions[n] = session
			n++
		}
	}
	return sessions[:n], nil
}

// CreateSession makes Jellyfin register a session for the given device.
// Jellyfin creates sessions for authenticated requests of devices it doesn't know yet,
// so posting the device's capabilities is enough.
func (c *Client) CreateSession(ctx context.Context, user User, device Device) (Session, error) {
	zapFieldDeviceID := zap.String("deviceID", device.ID)
	c.logger.Debug("Creating session...", zapFieldDeviceID, zap.String("userID", user.ID))

	if err := c.postCapabilities(ctx, user, device); err != nil {
		return Session{}, err
	}

	values := url.Values{}
	values.Set("DeviceId", device.ID)
	sessions, err := c.sessions(ctx, user, values)
	if err != nil {
		return Session{}, err
	}
	for _, session := range sessions {
		if session.DeviceID == device.ID {
			c.logger.Debug("Created session", zapFieldDeviceID, zap.String("sessionID", session.ID))
			return session, nil
		}
	}
	return Session{}, fmt.Errorf("Jellyfin didn't create a session for device %v", device.ID)
}

// UpdateSession reports the play state of a session to Jellyfin.
func (c *Client) UpdateSession(ctx context.Context, user User, update SessionUpdate) error {
	authHeader := c.authHeader(user, update.Device)
	switch {
	case update.Stopped != nil:
		body := map[string]interface{}{
			"ItemId":        update.Stopped.ItemID,
			"PositionTicks": update.Stopped.PositionTicks,
		}
		if _, err := c.post(ctx, "/Sessions/Playing/Stopped", body, authHeader); err != nil {
			return fmt.Errorf("Couldn't report stopped playback: %w", err)
		}
	case update.NowPlaying != nil:
		body := map[string]interface{}{
			"ItemId":        update.NowPlaying.ItemID,
			"PositionTicks": update.NowPlaying.PositionTicks,
			"IsPaused":      update.NowPlaying.IsPaused,
			"CanSeek":       update.NowPlaying.CanSeek,
			"PlayMethod":    "DirectPlay",
		}
		if _, err := c.post(ctx, "/Sessions/Playing/Progress", body, authHeader); err != nil {
			return fmt.Errorf("Couldn't report playback progress: %w", err)
		}
	default:
		return c.postCapabilities(ctx, user, update.Device)
	}
	return nil
}

func (c *Client) postCapabilities(ctx context.Context, user User, device Device) error {
	body := map[string]interface{}{
		"PlayableMediaTypes":   []string{"Video"},
		"SupportedCommands":    []string{},
		"SupportsMediaControl": false,
	}
	if _, err := c.post(ctx, "/Sessions/Capabilities/Full", body, c.authHeader(user, device)); err != nil {
		return fmt.Errorf("Couldn't post session capabilities: %w", err)
	}
	return nil
}

// authHeader builds the "MediaBrowser" authorization header that ties requests to a device.
func (c *Client) authHeader(user User, device Device) string {
	client := device.Client
	if client == "" {
		client = c.clientName
	}
	version := device.Version
	if version == "" {
		version = c.clientVersion
	}
	return fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s", Token="%s"`,
		client, device.Name, device.ID, version, user.Token)
}
