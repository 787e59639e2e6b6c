package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbogen/bucketdecomp/graph"
	"github.com/arbogen/bucketdecomp/value"
)

func edge(u, v int) [2]value.Var { return [2]value.Var{value.Var(u), value.Var(v)} }

func TestBuild_DedupAndSelfLoops(t *testing.T) {
	g, err := graph.Build([][2]value.Var{edge(0, 1), edge(1, 0), edge(2, 2)}, 0)
	require.NoError(t, err)
	require.Equal(t, 3, g.NumVertices())
	require.Equal(t, 1, g.Degree(0))
	require.Equal(t, 1, g.Degree(1))
	require.Equal(t, 0, g.Degree(2))
	require.True(t, g.HasEdge(0, 1))
	require.True(t, g.HasEdge(1, 0))
	require.False(t, g.HasEdge(0, 2))
}

func TestBuild_MinVertices(t *testing.T) {
	g, err := graph.Build(nil, 5)
	require.NoError(t, err)
	require.Equal(t, 5, g.NumVertices())
}

func TestBuild_RejectsNegativeVertex(t *testing.T) {
	_, err := graph.Build([][2]value.Var{edge(-1, 0)}, 0)
	require.ErrorIs(t, err, graph.ErrNegativeVertex)
}

func TestEdges_SortedAscendingPairs(t *testing.T) {
	g, err := graph.Build([][2]value.Var{edge(2, 0), edge(0, 1)}, 0)
	require.NoError(t, err)
	require.Equal(t, [][2]value.Var{edge(0, 1), edge(0, 2)}, g.Edges())
}

func TestMutable_EliminationClique(t *testing.T) {
	g, err := graph.Build([][2]value.Var{edge(0, 1), edge(0, 2)}, 3)
	require.NoError(t, err)

	m := graph.NewMutable(g, 3)
	require.Equal(t, 2, m.Degree(0))
	require.False(t, m.HasEdge(1, 2))

	m.Connect(m.Neighbors(0))
	require.True(t, m.HasEdge(1, 2))

	m.Remove(0)
	require.False(t, m.Alive(0))
	require.Equal(t, 0, m.Degree(0))
	require.True(t, m.HasEdge(1, 2))
}
