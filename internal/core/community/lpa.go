package community

import (
	"sort"

	"github.com/agenthands/ontograph/internal/core/model"
)

// Detector groups node ids into communities.
type Detector interface {
	Detect(g *model.KnowledgeGraph) [][]string
}

// LabelPropagationDetector implements community detection using the Label
// Propagation Algorithm. Nodes are visited in graph order and ties go to the
// lexicographically largest label, so results are deterministic.
type LabelPropagationDetector struct {
	MaxIterations int
	// MinSize drops smaller communities; singletons are not communities.
	MinSize int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{MaxIterations: 20, MinSize: 2}
}

func (d *LabelPropagationDetector) Detect(g *model.KnowledgeGraph) [][]string {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}
	adj := adjacency(g)

	// Each node starts with its own id as label.
	labels := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		labels[n.ID] = n.ID
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0
		for _, n := range g.Nodes {
			neighbors := adj[n.ID]
			if len(neighbors) == 0 {
				continue
			}

			// Label frequencies among neighbors, weighted by edge multiplicity.
			labelCounts := make(map[string]int)
			maxCount := 0
			for v, weight := range neighbors {
				label := labels[v]
				labelCounts[label] += weight
				if labelCounts[label] > maxCount {
					maxCount = labelCounts[label]
				}
			}

			var candidates []string
			for label, count := range labelCounts {
				if count == maxCount {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			bestLabel := candidates[len(candidates)-1]

			if labels[n.ID] != bestLabel {
				labels[n.ID] = bestLabel
				changeCount++
			}
		}
		if changeCount == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for _, n := range g.Nodes {
		clusters[labels[n.ID]] = append(clusters[labels[n.ID]], n.ID)
	}
	var communities [][]string
	for _, cluster := range clusters {
		if len(cluster) >= d.MinSize {
			communities = append(communities, cluster)
		}
	}
	sortGroups(communities)
	return communities
}

// adjacency builds an undirected multigraph, skipping dangling endpoints and self-loops.
func adjacency(g *model.KnowledgeGraph) map[string]map[string]int {
	adj := make(map[string]map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		adj[n.ID] = make(map[string]int)
	}
	for _, r := range g.Relationships {
		if r.StartNode == r.EndNode {
			continue
		}
		if _, ok := adj[r.StartNode]; !ok {
			continue
		}
		if _, ok := adj[r.EndNode]; !ok {
			continue
		}
		adj[r.StartNode][r.EndNode]++
		adj[r.EndNode][r.StartNode]++
	}
	return adj
}

// sortGroups orders groups by size descending, then by first member.
func sortGroups(groups [][]string) {
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})
}
