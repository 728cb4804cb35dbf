package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/scheduling-engine/internal/model"
)

func addConflict(m *memStores, id string, c model.ScheduleConflict) {
	c.ID = id
	if c.EventID == "" {
		c.EventID = testEvent
	}
	c.DetectedAt = at(9, 0)
	m.conflicts[id] = c
}

func TestResolveConflict(t *testing.T) {
	ctx := context.Background()
	req := model.ResolveConflictRequest{
		ResolutionType: model.ResolutionReschedule,
		Notes:          "moved session b to the afternoon",
		ResolvedBy:     "organizer-7",
	}

	t.Run("RecordsResolution", func(t *testing.T) {
		stores := newMemStores()
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:               model.ConflictTimeOverlap,
			PrimarySessionID:   "a",
			SecondarySessionID: strPtr("b"),
		})
		_, _, _, resolver := newEngine(stores)

		conflict, err := resolver.ResolveConflict(ctx, "c1", req)
		require.NoError(t, err)
		assert.True(t, conflict.Resolved)
		assert.True(t, stores.conflicts["c1"].Resolved)

		require.Len(t, stores.resolutions, 1)
		res := stores.resolutions[0]
		assert.Equal(t, "c1", res.ConflictID)
		assert.Equal(t, model.ResolutionReschedule, res.ResolutionType)
		assert.Equal(t, "organizer-7", res.ResolvedBy)
	})

	t.Run("AlreadyResolvedIsNoOp", func(t *testing.T) {
		stores := newMemStores()
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:             model.ConflictTimeOverlap,
			PrimarySessionID: "a",
			Resolved:         true,
		})
		_, _, _, resolver := newEngine(stores)

		conflict, err := resolver.ResolveConflict(ctx, "c1", req)
		require.NoError(t, err)
		assert.True(t, conflict.Resolved)
		assert.Empty(t, stores.resolutions, "no second resolution is written")
	})

	t.Run("UnknownConflict", func(t *testing.T) {
		stores := newMemStores()
		_, _, _, resolver := newEngine(stores)

		_, err := resolver.ResolveConflict(ctx, "missing", req)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("MissingResolverRejected", func(t *testing.T) {
		stores := newMemStores()
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:             model.ConflictTimeOverlap,
			PrimarySessionID: "a",
		})
		_, _, _, resolver := newEngine(stores)

		_, err := resolver.ResolveConflict(ctx, "c1", model.ResolveConflictRequest{
			ResolutionType: model.ResolutionManual,
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestAutoResolveConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("ResourceConflictKeepsEarlierStart", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("early", at(9, 0), at(10, 30))
		stores.addSession("late", at(10, 0), at(11, 0))
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:               model.ConflictResource,
			PrimarySessionID:   "late",
			SecondarySessionID: strPtr("early"),
		})
		_, _, _, resolver := newEngine(stores)

		resolved, err := resolver.AutoResolveConflicts(ctx)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.True(t, stores.conflicts["c1"].Resolved)

		require.Len(t, stores.resolutions, 1)
		res := stores.resolutions[0]
		assert.Equal(t, model.ResolutionKeepEarlierStart, res.ResolutionType)
		assert.Equal(t, "auto-resolver", res.ResolvedBy)
		assert.Contains(t, res.Notes, `"session early"`)
	})

	t.Run("UserConflictKeepsFirstRegistration", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("a", at(10, 0), at(11, 30))
		stores.addSession("b", at(11, 0), at(12, 0))
		firstID := stores.addRegistration("a", "u1", model.RegistrationConfirmed, at(8, 0))
		secondID := stores.addRegistration("b", "u1", model.RegistrationConfirmed, at(8, 30))
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:               model.ConflictUser,
			PrimarySessionID:   "b",
			SecondarySessionID: strPtr("a"),
			RegistrantID:       strPtr("u1"),
		})
		_, _, _, resolver := newEngine(stores)

		resolved, err := resolver.AutoResolveConflicts(ctx)
		require.NoError(t, err)
		require.Len(t, resolved, 1)

		require.Len(t, stores.resolutions, 1)
		res := stores.resolutions[0]
		assert.Equal(t, model.ResolutionKeepFirstBooked, res.ResolutionType)
		assert.Contains(t, res.Notes, firstID+" kept")
		assert.Contains(t, res.Notes, secondID+" needs reschedule")
	})

	t.Run("TimeOverlapAndCapacityAreLeftOpen", func(t *testing.T) {
		stores := newMemStores()
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:               model.ConflictTimeOverlap,
			PrimarySessionID:   "a",
			SecondarySessionID: strPtr("b"),
		})
		addConflict(stores, "c2", model.ScheduleConflict{
			Type:             model.ConflictCapacity,
			PrimarySessionID: "a",
		})
		_, _, _, resolver := newEngine(stores)

		resolved, err := resolver.AutoResolveConflicts(ctx)
		require.NoError(t, err)
		assert.Empty(t, resolved)
		assert.False(t, stores.conflicts["c1"].Resolved)
		assert.False(t, stores.conflicts["c2"].Resolved)
	})

	t.Run("VanishedSessionIsSkipped", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("late", at(10, 0), at(11, 0))
		addConflict(stores, "c1", model.ScheduleConflict{
			Type:               model.ConflictResource,
			PrimarySessionID:   "late",
			SecondarySessionID: strPtr("deleted"),
		})
		_, _, _, resolver := newEngine(stores)

		resolved, err := resolver.AutoResolveConflicts(ctx)
		require.NoError(t, err)
		assert.Empty(t, resolved)
		assert.False(t, stores.conflicts["c1"].Resolved, "left for the next detection pass")
	})
}
