package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiersLinearChain(t *testing.T) {
	nodes := []Node{
		{Name: "db"},
		{Name: "migrate", DependsOn: []string{"db"}},
		{Name: "api", DependsOn: []string{"migrate"}},
	}
	tiers, err := Tiers(nodes)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"db"}, {"migrate"}, {"api"}}, tiers)
}

func TestTiersIndependentSiblings(t *testing.T) {
	nodes := []Node{
		{Name: "fast"},
		{Name: "slow"},
		{Name: "child", DependsOn: []string{"fast"}},
	}
	tiers, err := Tiers(nodes)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.ElementsMatch(t, []string{"fast", "slow"}, tiers[0])
	assert.Equal(t, []string{"child"}, tiers[1])
}

func TestTiersCycleDetected(t *testing.T) {
	nodes := []Node{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"c"}},
		{Name: "c", DependsOn: []string{"a"}},
	}
	_, err := Tiers(nodes)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Members, "a")
	assert.Contains(t, cycleErr.Members, "b")
	assert.Contains(t, cycleErr.Members, "c")
}

// TestTiersUnionCoversAllNodes covers testable-property 1: tier union equals
// the process set and tier index strictly exceeds every dependency's index.
func TestTiersUnionCoversAllNodes(t *testing.T) {
	nodes := []Node{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
		{Name: "c", DependsOn: []string{"a", "b"}},
	}
	tiers, err := Tiers(nodes)
	require.NoError(t, err)

	tierOf := make(map[string]int)
	for i, tier := range tiers {
		for _, n := range tier {
			tierOf[n] = i
		}
	}
	assert.Len(t, tierOf, len(nodes))

	byName := make(map[string]Node)
	for _, n := range nodes {
		byName[n.Name] = n
	}
	for name, idx := range tierOf {
		for _, dep := range byName[name].DependsOn {
			assert.Less(t, tierOf[dep], idx)
		}
	}
}
