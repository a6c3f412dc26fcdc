// Package shadow keeps a synthetic "Jellio" session in Jellyfin up to date,
// so that users who play media via Stremio show up in Jellyfin's active devices.
//
// Jellyfin never learns the real state of the player. The session is driven by
// stream lookups and by the progress/stop reports the player sends.
package shadow

//go:generate mockgen -destination=mocks/session_manager.go -package=mocks . SessionManager

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/jellyfin"
	"github.com/doingodswork/jellio/pkg/metrics"
)

// DeviceName is the device name of the synthetic session. It's how the session is found again.
const DeviceName = "Jellio"

// Namespace of the device IDs, which are derived from the user ID
var deviceNamespace = uuid.MustParse("5c0b1e4e-63a7-4e0b-9a53-2b7f1d0c8a41")

type State int

const (
	// Absent means there's no synthetic session for the user.
	Absent State = iota
	// Idle means the session exists but nothing is playing.
	Idle
	// Playing means the session exists and has a play state.
	Playing
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventStreamResolved EventKind = iota
	EventProgress
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventStreamResolved:
		return "stream"
	case EventProgress:
		return "progress"
	case EventStopped:
		return "stop"
	default:
		return "unknown"
	}
}

// Event is something that happened on the Stremio side.
type Event struct {
	Kind EventKind
	// Empty for EventStreamResolved
	ItemID        string
	PositionTicks int64
	IsPaused      bool
	At            time.Time
}

type PlayState struct {
	ItemID        string
	PositionTicks int64
	IsPaused      bool
	CanSeek       bool
}

// Shadow is the last known state of the synthetic session of a user.
type Shadow struct {
	SessionID    string
	DeviceID     string
	LastActivity time.Time
	// nil when idle
	PlayState *PlayState
}

// State derives the state from the shadow's fields.
func (s Shadow) State() State {
	if s.SessionID == "" {
		return Absent
	}
	if s.PlayState == nil {
		return Idle
	}
	return Playing
}

// Apply returns the shadow after the event. It doesn't create sessions,
// so an absent shadow stays absent.
func Apply(s Shadow, e Event) Shadow {
	s.LastActivity = e.At
	switch e.Kind {
	case EventProgress:
		s.PlayState = &PlayState{
			ItemID:        e.ItemID,
			PositionTicks: e.PositionTicks,
			IsPaused:      e.IsPaused,
			CanSeek:       true,
		}
	case EventStopped:
		s.PlayState = nil
	}
	return s
}

// SessionManager is the part of Jellyfin's session API the tracker needs.
type SessionManager interface {
	Sessions(ctx context.Context, user jellyfin.User) ([]jellyfin.Session, error)
	CreateSession(ctx context.Context, user jellyfin.User, device jellyfin.Device) (jellyfin.Session, error)
	UpdateSession(ctx context.Context, user jellyfin.User, update jellyfin.SessionUpdate) error
}

// Tracker drives the synthetic session of each user.
// All its methods are best-effort: errors are logged and counted, but never returned.
//
// Looking up and then creating or updating a session isn't atomic, so concurrent
// requests of the same user can lead to lost updates.
// The device ID is derived from the user ID, so Jellyfin still keeps only one session per user.
type Tracker struct {
	sessions SessionManager
	logger   *zap.Logger
	now      func() time.Time
}

func NewTracker(sessions SessionManager, logger *zap.Logger) *Tracker {
	return &Tracker{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// StreamResolved marks the user as active. The play state is kept.
func (t *Tracker) StreamResolved(ctx context.Context, user jellyfin.User, item jellyfin.Item) {
	t.handle(ctx, user, item, Event{Kind: EventStreamResolved})
}

// Progress sets the play state of the session.
func (t *Tracker) Progress(ctx context.Context, user jellyfin.User, item jellyfin.Item, positionTicks int64, isPaused bool) {
	t.handle(ctx, user, item, Event{
		Kind:          EventProgress,
		ItemID:        item.ID,
		PositionTicks: positionTicks,
		IsPaused:      isPaused,
	})
}

// Stopped clears the play state of the session. The session itself stays.
func (t *Tracker) Stopped(ctx context.Context, user jellyfin.User, item jellyfin.Item, positionTicks int64) {
	t.handle(ctx, user, item, Event{
		Kind:          EventStopped,
		ItemID:        item.ID,
		PositionTicks: positionTicks,
	})
}

func (t *Tracker) handle(ctx context.Context, user jellyfin.User, item jellyfin.Item, event Event) {
	zapFieldUserID := zap.String("userID", user.ID)
	zapFieldEvent := zap.Stringer("event", event.Kind)
	zapFieldItemID := zap.String("itemID", item.ID)

	event.At = t.now()

	current, err := t.session(ctx, user)
	if err != nil {
		t.logger.Warn("Couldn't get or create shadow session", zap.Error(err), zapFieldUserID, zapFieldEvent, zapFieldItemID)
		return
	}
	next := Apply(current, event)

	update := jellyfin.SessionUpdate{
		SessionID: next.SessionID,
		Device:    jellyfin.Device{ID: next.DeviceID, Name: DeviceName},
	}
	switch event.Kind {
	case EventProgress:
		update.NowPlaying = &jellyfin.PlaybackReport{
			ItemID:        next.PlayState.ItemID,
			PositionTicks: next.PlayState.PositionTicks,
			IsPaused:      next.PlayState.IsPaused,
			CanSeek:       next.PlayState.CanSeek,
		}
	case EventStopped:
		update.Stopped = &jellyfin.PlaybackReport{
			ItemID:        event.ItemID,
			PositionTicks: event.PositionTicks,
		}
	}

	err = t.sessions.UpdateSession(ctx, user, update)
	metrics.RecordShadowOperation("update", err)
	if err != nil {
		t.logger.Warn("Couldn't update shadow session", zap.Error(err), zapFieldUserID, zapFieldEvent, zapFieldItemID)
		return
	}
	t.logger.Debug("Updated shadow session", zapFieldUserID, zapFieldEvent, zapFieldItemID,
		zap.Stringer("from", current.State()), zap.Stringer("to", next.State()))
}

// session looks up the user's synthetic session and creates it if it doesn't exist yet.
func (t *Tracker) session(ctx context.Context, user jellyfin.User) (Shadow, error) {
	sessions, err := t.sessions.Sessions(ctx, user)
	metrics.RecordShadowOperation("list", err)
	if err != nil {
		return Shadow{}, err
	}
	for _, session := range sessions {
		if session.UserID == user.ID && session.DeviceName == DeviceName {
			return fromSession(session), nil
		}
	}

	device := jellyfin.Device{
		ID:   DeviceID(user.ID),
		Name: DeviceName,
	}
	session, err := t.sessions.CreateSession(ctx, user, device)
	metrics.RecordShadowOperation("create", err)
	if err != nil {
		return Shadow{}, err
	}
	t.logger.Info("Created shadow session", zap.String("userID", user.ID), zap.String("sessionID", session.ID))
	res := fromSession(session)
	if res.DeviceID == "" {
		res.DeviceID = device.ID
	}
	return res, nil
}

// DeviceID returns the ID of the synthetic device of a user.
func DeviceID(userID string) string {
	return uuid.NewSHA1(deviceNamespace, []byte(userID)).String()
}

func fromSession(session jellyfin.Session) Shadow {
	res := Shadow{
		SessionID:    session.ID,
		DeviceID:     session.DeviceID,
		LastActivity: session.LastActivityDate,
	}
	if session.NowPlayingItem != nil {
		res.PlayState = &PlayState{ItemID: session.NowPlayingItem.ID}
		if session.PlayState != nil {
			res.PlayState.PositionTicks = session.PlayState.PositionTicks
			res.PlayState.IsPaused = session.PlayState.IsPaused
			res.PlayState.CanSeek = session.PlayState.CanSeek
		}
	}
	return res
}
