package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCircularDependencies(t *testing.T) {
	ctx := context.Background()

	t.Run("AcyclicGraph", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("a", at(8, 0), at(9, 0))
		stores.addSession("b", at(10, 0), at(11, 0))
		stores.addSession("c", at(12, 0), at(13, 0))
		stores.addDependency("a", "b")
		stores.addDependency("b", "c")
		_, prereqSvc, _, _ := newEngine(stores)

		cycles, err := prereqSvc.DetectCircularDependencies(ctx, testEvent)
		require.NoError(t, err)
		assert.Empty(t, cycles)
	})

	t.Run("ThreeSessionCycle", func(t *testing.T) {
		stores := newMemStores()
		stores.addDependency("a", "b")
		stores.addDependency("b", "c")
		stores.addDependency("c", "a")
		_, prereqSvc, _, _ := newEngine(stores)

		cycles, err := prereqSvc.DetectCircularDependencies(ctx, testEvent)
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])
	})

	t.Run("SameLoopCountedOnce", func(t *testing.T) {
		stores := newMemStores()
		stores.addDependency("a", "b")
		stores.addDependency("b", "a")
		// Two entry points into the same two-node loop.
		stores.addDependency("x", "a")
		stores.addDependency("y", "b")
		_, prereqSvc, _, _ := newEngine(stores)

		cycles, err := prereqSvc.DetectCircularDependencies(ctx, testEvent)
		require.NoError(t, err)
		require.Len(t, cycles, 1)
		assert.ElementsMatch(t, []string{"a", "b"}, cycles[0])
	})

	t.Run("DisjointCycles", func(t *testing.T) {
		stores := newMemStores()
		stores.addDependency("a", "b")
		stores.addDependency("b", "a")
		stores.addDependency("c", "d")
		stores.addDependency("d", "c")
		_, prereqSvc, _, _ := newEngine(stores)

		cycles, err := prereqSvc.DetectCircularDependencies(ctx, testEvent)
		require.NoError(t, err)
		assert.Len(t, cycles, 2)
	})

	t.Run("EmptyGraph", func(t *testing.T) {
		stores := newMemStores()
		_, prereqSvc, _, _ := newEngine(stores)

		cycles, err := prereqSvc.DetectCircularDependencies(ctx, testEvent)
		require.NoError(t, err)
		assert.Empty(t, cycles)
	})
}

func TestGetSessionDependencyPath(t *testing.T) {
	ctx := context.Background()

	t.Run("ShortestPathIsReturned", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("a", at(8, 0), at(9, 0))
		stores.addSession("b", at(10, 0), at(11, 0))
		stores.addSession("c", at(12, 0), at(13, 0))
		stores.addDependency("a", "b")
		stores.addDependency("b", "c")
		// Longer alternative through d must not win.
		stores.addDependency("a", "d")
		stores.addDependency("d", "e")
		stores.addDependency("e", "c")
		_, prereqSvc, _, _ := newEngine(stores)

		path, err := prereqSvc.GetSessionDependencyPath(ctx, "a", "c")
		require.NoError(t, err)
		assert.True(t, path.Found)
		assert.Equal(t, []string{"a", "b", "c"}, path.Path)
	})

	t.Run("NoPathIsNotAnError", func(t *testing.T) {
		stores := newMemStores()
		stores.addSession("a", at(8, 0), at(9, 0))
		stores.addSession("c", at(12, 0), at(13, 0))
		stores.addDependency("c", "a") // edge points the other way
		_, prereqSvc, _, _ := newEngine(stores)

		path, err := prereqSvc.GetSessionDependencyPath(ctx, "a", "c")
		require.NoError(t, err)
		assert.False(t, path.Found)
		assert.Empty(t, path.Path)
	})

	t.Run("UnknownSourceSession", func(t *testing.T) {
		stores := newMemStores()
		_, prereqSvc, _, _ := newEngine(stores)

		_, err := prereqSvc.GetSessionDependencyPath(ctx, "missing", "c")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAnalyzeDependencyStructure(t *testing.T) {
	ctx := context.Background()

	stores := newMemStores()
	stores.addSession("intro", at(8, 0), at(9, 0))
	stores.addSession("basics", at(10, 0), at(11, 0))
	stores.addSession("advanced", at(12, 0), at(13, 0))
	stores.addSession("lab", at(14, 0), at(15, 0))
	stores.addSession("social", at(18, 0), at(19, 0)) // isolated
	stores.addDependency("intro", "basics")
	stores.addDependency("basics", "advanced")
	stores.addDependency("basics", "lab")
	_, prereqSvc, _, _ := newEngine(stores)

	analysis, err := prereqSvc.AnalyzeDependencyStructure(ctx, testEvent)
	require.NoError(t, err)

	assert.Equal(t, 5, analysis.SessionCount)
	assert.Equal(t, 3, analysis.DependencyCount)
	assert.Equal(t, []string{"intro"}, analysis.RootSessions)
	assert.ElementsMatch(t, []string{"advanced", "lab"}, analysis.LeafSessions)
	assert.Equal(t, 2, analysis.FanOut["basics"])
	assert.Equal(t, 1, analysis.FanIn["advanced"])
	assert.NotContains(t, analysis.FanIn, "social", "isolated sessions stay out of the graph")
	assert.Len(t, analysis.LongestChain, 3)
	assert.Equal(t, "intro", analysis.LongestChain[0])
	assert.Equal(t, "basics", analysis.LongestChain[1])
}

func TestAnalyzeDependencyStructureEmpty(t *testing.T) {
	stores := newMemStores()
	stores.addSession("a", at(8, 0), at(9, 0))
	_, prereqSvc, _, _ := newEngine(stores)

	analysis, err := prereqSvc.AnalyzeDependencyStructure(context.Background(), testEvent)
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.SessionCount)
	assert.Zero(t, analysis.DependencyCount)
	assert.Empty(t, analysis.RootSessions)
	assert.Nil(t, analysis.LongestChain)
}
