package render

import (
	"fmt"
	"strings"

	"github.com/sourceplane/pipegate/internal/model"
	"github.com/xlab/treeprint"
)

// GraphViewer provides a human-readable visualization of a built job graph.
type GraphViewer struct {
	graph *model.JobGraph
}

// NewGraphViewer creates a viewer for the given graph
func NewGraphViewer(graph *model.JobGraph) *GraphViewer {
	return &GraphViewer{graph: graph}
}

// ViewDAG returns a tree rendering of the graph rooted at jobs without
// dependencies. A job reachable through several upstreams appears once per
// path, which keeps each chain readable.
func (gv *GraphViewer) ViewDAG() string {
	if len(gv.graph.Order) == 0 {
		return "No jobs in graph"
	}

	tree := treeprint.NewWithRoot(gv.graph.Template)
	for _, id := range gv.graph.Order {
		if len(gv.graph.Nodes[id].DependsOn) == 0 {
			gv.addJobTree(id, tree)
		}
	}

	var sb strings.Builder
	sb.WriteString(tree.String())

	if len(gv.graph.Excluded) > 0 {
		sb.WriteString("\nExcluded:\n")
		for _, excluded := range gv.graph.Excluded {
			sb.WriteString(fmt.Sprintf("  %s (%s)\n", excluded.ID, excluded.Reason))
		}
	}

	sb.WriteString(fmt.Sprintf("\nSummary: %d jobs, %d excluded\n",
		len(gv.graph.Order), len(gv.graph.Excluded)))
	return sb.String()
}

func (gv *GraphViewer) addJobTree(id string, tree treeprint.Tree) {
	node := gv.graph.Nodes[id]

	label := id
	if node.Timeout > 0 {
		label += fmt.Sprintf(" [%s]", node.Timeout)
	}
	subtree := tree.AddBranch(label)

	if len(node.Gates) > 0 {
		gateBranch := subtree.AddMetaBranch(len(node.Gates), "gates")
		for _, gate := range node.Gates {
			gateBranch.AddNode(fmt.Sprintf("%s %s %s", gate.Metric, gate.Comparator, gate.Threshold))
		}
	}

	for _, dependent := range gv.graph.Dependents(id) {
		gv.addJobTree(dependent, subtree)
	}
}

// ViewCommands lists every included job with its fully substituted command,
// in execution order.
func (gv *GraphViewer) ViewCommands() string {
	if len(gv.graph.Order) == 0 {
		return "No jobs in graph"
	}

	var sb strings.Builder
	for _, id := range gv.graph.Order {
		node := gv.graph.Nodes[id]
		sb.WriteString(fmt.Sprintf("%s\n", id))
		sb.WriteString(fmt.Sprintf("  $ %s\n", node.Command))
		if len(node.DependsOn) > 0 {
			sb.WriteString(fmt.Sprintf("  depends on: %s\n", strings.Join(node.DependsOn, ", ")))
		}
	}
	return sb.String()
}
