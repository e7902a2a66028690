package community

import "github.com/agenthands/ontograph/internal/core/model"

// Components returns the connected components of g, singletons included,
// largest first. Members keep graph order.
func Components(g *model.KnowledgeGraph) [][]string {
	if g == nil {
		return nil
	}
	adj := adjacency(g)
	visited := make(map[string]bool, len(g.Nodes))
	var components [][]string
	for _, n := range g.Nodes {
		if visited[n.ID] {
			continue
		}
		var members []string
		stack := []string{n.ID}
		visited[n.ID] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, u)
			for v := range adj[u] {
				if !visited[v] {
					visited[v] = true
					stack = append(stack, v)
				}
			}
		}
		components = append(components, inGraphOrder(g, members))
	}
	sortGroups(components)
	return components
}

func inGraphOrder(g *model.KnowledgeGraph, ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, n := range g.Nodes {
		if set[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
