package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginClose_OutermostCommitsOnly(t *testing.T) {
	var commits, rollbacks int
	mgr, err := session.NewManager(
		func(s *session.Session) error { commits++; return nil },
		func(s *session.Session, reversed []events.Event) { rollbacks++ },
	)
	require.NoError(t, err)

	var notified []session.Info
	unsub := mgr.Subscribe(func(ctx context.Context, info session.Info) error {
		notified = append(notified, info)
		return nil
	})
	defer unsub()

	outer := mgr.Begin(events.Normal)
	outer.Append(events.NewAddEntity("d", "d:1", "d:Book", 1, true))

	inner := mgr.Begin(events.Normal)
	assert.Same(t, outer, inner, "nested begin must share the outermost session")

	require.NoError(t, mgr.Close(context.Background(), inner, true))
	assert.Equal(t, 0, commits, "inner close must not commit")

	require.NoError(t, mgr.Close(context.Background(), outer, true))
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
	require.Len(t, notified, 1)
	assert.False(t, notified[0].Aborted)
	assert.Len(t, notified[0].Events, 1)
}

func TestClose_WithoutAcceptRollsBack(t *testing.T) {
	var reversedEvents []events.Event
	mgr, err := session.NewManager(
		func(s *session.Session) error { return nil },
		func(s *session.Session, reversed []events.Event) { reversedEvents = reversed },
	)
	require.NoError(t, err)

	s := mgr.Begin(events.Normal)
	s.Append(events.NewAddEntity("d", "d:1", "d:Book", 1, true))

	err = mgr.Close(context.Background(), s, false)
	require.Error(t, err, "rolled-back close reports aborted")
	require.Len(t, reversedEvents, 1)
	assert.Equal(t, events.RemoveEntity, reversedEvents[0].Kind)
}

func TestClose_CommitErrorTriggersRollback(t *testing.T) {
	boom := errors.New("constraint failed")
	var rolledBack bool
	mgr, err := session.NewManager(
		func(s *session.Session) error { return boom },
		func(s *session.Session, reversed []events.Event) { rolledBack = true },
	)
	require.NoError(t, err)

	s := mgr.Begin(events.Normal)
	s.Append(events.NewAddEntity("d", "d:1", "d:Book", 1, true))

	err = mgr.Close(context.Background(), s, true)
	require.Error(t, err)
	assert.True(t, rolledBack)
}

func TestCurrent_ReflectsAmbientSlot(t *testing.T) {
	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)

	_, ok := mgr.Current()
	assert.False(t, ok)

	s := mgr.Begin(events.Normal)
	cur, ok := mgr.Current()
	require.True(t, ok)
	assert.Same(t, s, cur)

	require.NoError(t, mgr.Close(context.Background(), s, true))
	_, ok = mgr.Current()
	assert.False(t, ok)
}
