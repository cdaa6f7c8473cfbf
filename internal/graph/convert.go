package graph

import "github.com/rung-dev/rung/internal/config"

// NodesFromConfig converts a resolved config's processes into the generic
// Node shape Tiers operates on.
func NodesFromConfig(c *config.ResolvedConfig) []Node {
	nodes := make([]Node, 0, len(c.Processes))
	for name, rec := range c.Processes {
		nodes = append(nodes, Node{Name: name, DependsOn: rec.DependsOn})
	}
	return nodes
}
