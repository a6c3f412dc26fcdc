package shadow

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/doingodswork/jellio/pkg/jellyfin"
)

func TestApply(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	s := Shadow{SessionID: "s1", DeviceID: "d1", LastActivity: t0}
	require.Equal(t, Idle, s.State())

	// Idle -> Idle
	s = Apply(s, Event{Kind: EventStreamResolved, At: t1})
	require.Equal(t, Idle, s.State())
	require.Equal(t, t1, s.LastActivity)

	// Idle -> Playing
	s = Apply(s, Event{Kind: EventProgress, ItemID: "item1", PositionTicks: 100, IsPaused: true, At: t2})
	require.Equal(t, Playing, s.State())
	require.Equal(t, &PlayState{ItemID: "item1", PositionTicks: 100, IsPaused: true, CanSeek: true}, s.PlayState)
	require.Equal(t, t2, s.LastActivity)

	// Stream lookups keep the play state
	s = Apply(s, Event{Kind: EventStreamResolved, At: t3})
	require.Equal(t, Playing, s.State())
	require.Equal(t, "item1", s.PlayState.ItemID)

	// Playing -> Playing
	s = Apply(s, Event{Kind: EventProgress, ItemID: "item1", PositionTicks: 200, At: t3})
	require.Equal(t, int64(200), s.PlayState.PositionTicks)
	require.False(t, s.PlayState.IsPaused)

	// Playing -> Idle, the session stays
	s = Apply(s, Event{Kind: EventStopped, ItemID: "item1", PositionTicks: 300, At: t3})
	require.Equal(t, Idle, s.State())
	require.Equal(t, "s1", s.SessionID)
	require.Equal(t, "d1", s.DeviceID)

	// Absent stays absent
	require.Equal(t, Absent, Apply(Shadow{}, Event{Kind: EventProgress, ItemID: "item1", At: t0}).State())
}

func TestApplyDoesntMutateInput(t *testing.T) {
	playState := &PlayState{ItemID: "item1"}
	s := Shadow{SessionID: "s1", PlayState: playState}
	_ = Apply(s, Event{Kind: EventProgress, ItemID: "item2"})
	require.Equal(t, "item1", s.PlayState.ItemID)
	require.Same(t, playState, s.PlayState)
}

func TestDeviceID(t *testing.T) {
	require.Equal(t, DeviceID("user1"), DeviceID("user1"))
	require.NotEqual(t, DeviceID("user1"), DeviceID("user2"))
}

// fakeSessionManager keeps sessions in memory like Jellyfin does
type fakeSessionManager struct {
	sessions []jellyfin.Session
	updates  []jellyfin.SessionUpdate
	created  int
}

func (f *fakeSessionManager) Sessions(_ context.Context, user jellyfin.User) ([]jellyfin.Session, error) {
	var res []jellyfin.Session
	for _, session := range f.sessions {
		if session.UserID == user.ID {
			res = append(res, session)
		}
	}
	return res, nil
}

func (f *fakeSessionManager) CreateSession(_ context.Context, user jellyfin.User, device jellyfin.Device) (jellyfin.Session, error) {
	f.created++
	session := jellyfin.Session{
		ID:         "session" + strconv.Itoa(f.created),
		UserID:     user.ID,
		DeviceName: device.Name,
		DeviceID:   device.ID,
	}
	f.sessions = append(f.sessions, session)
	return session, nil
}

func (f *fakeSessionManager) UpdateSession(_ context.Context, user jellyfin.User, update jellyfin.SessionUpdate) error {
	f.updates = append(f.updates, update)
	for i, session := range f.sessions {
		if session.ID != update.SessionID {
			continue
		}
		switch {
		case update.NowPlaying != nil:
			f.sessions[i].NowPlayingItem = &jellyfin.NowPlayingItem{ID: update.NowPlaying.ItemID}
			f.sessions[i].PlayState = &jellyfin.PlayState{PositionTicks: update.NowPlaying.PositionTicks, IsPaused: update.NowPlaying.IsPaused}
		case update.Stopped != nil:
			f.sessions[i].NowPlayingItem = nil
			f.sessions[i].PlayState = nil
		}
	}
	return nil
}

func TestTrackerCreatesOneSessionPerUser(t *testing.T) {
	ctx := context.Background()
	sessions := &fakeSessionManager{
		// Sessions of other devices must be ignored
		sessions: []jellyfin.Session{{ID: "web", UserID: "user1", DeviceName: "Firefox"}},
	}
	tracker := NewTracker(sessions, zap.NewNop())
	user1 := jellyfin.User{ID: "user1", Token: "t1"}
	user2 := jellyfin.User{ID: "user2", Token: "t2"}
	item := jellyfin.Item{ID: "item1"}

	tracker.StreamResolved(ctx, user1, item)
	require.Equal(t, 1, sessions.created)
	tracker.StreamResolved(ctx, user1, item)
	require.Equal(t, 1, sessions.created)

	tracker.StreamResolved(ctx, user2, item)
	require.Equal(t, 2, sessions.created)

	// Every event updates the same session
	require.Len(t, sessions.updates, 3)
	require.Equal(t, "session1", sessions.updates[0].SessionID)
	require.Equal(t, "session1", sessions.updates[1].SessionID)
	require.Equal(t, "session2", sessions.updates[2].SessionID)
	require.Equal(t, DeviceName, sessions.updates[0].Device.Name)
	require.Equal(t, DeviceID("user1"), sessions.updates[0].Device.ID)
}

func TestTrackerPlayback(t *testing.T) {
	ctx := context.Background()
	sessions := &fakeSessionManager{}
	tracker := NewTracker(sessions, zap.NewNop())
	user := jellyfin.User{ID: "user1"}
	item := jellyfin.Item{ID: "item1"}

	// Progress without a prior stream lookup creates the session
	tracker.Progress(ctx, user, item, 100, false)
	require.Equal(t, 1, sessions.created)
	require.Equal(t, &jellyfin.PlaybackReport{ItemID: "item1", PositionTicks: 100, CanSeek: true}, sessions.updates[0].NowPlaying)
	require.Equal(t, "item1", sessions.sessions[0].NowPlayingItem.ID)

	tracker.Progress(ctx, user, item, 200, true)
	require.Equal(t, 1, sessions.created)
	require.Equal(t, &jellyfin.PlaybackReport{ItemID: "item1", PositionTicks: 200, IsPaused: true, CanSeek: true}, sessions.updates[1].NowPlaying)

	tracker.Stopped(ctx, user, item, 300)
	require.Equal(t, 1, sessions.created)
	require.Nil(t, sessions.updates[2].NowPlaying)
	require.Equal(t, &jellyfin.PlaybackReport{ItemID: "item1", PositionTicks: 300}, sessions.updates[2].Stopped)
	require.Nil(t, sessions.sessions[0].NowPlayingItem)

	// Stream lookups only touch the session
	tracker.StreamResolved(ctx, user, item)
	require.Nil(t, sessions.updates[3].NowPlaying)
	require.Nil(t, sessions.updates[3].Stopped)
}
