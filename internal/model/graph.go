package model

import "time"

// JobNode is one dispatchable job in a built graph. Command has all input
// placeholders substituted at build time, so the Dispatcher never sees an
// unresolved reference. DependsOn is restricted to jobs that remain in the
// graph after condition filtering.
type JobNode struct {
	ID        string        `json:"id" yaml:"id"`
	Command   string        `json:"command" yaml:"command"`
	DependsOn []string      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Gates     []GateSpec    `json:"gates,omitempty" yaml:"gates,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ExcludedJob records a job left out of the graph by condition filtering,
// kept for Verdict auditability.
type ExcludedJob struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// JobGraph is the dependency-ordered set of jobs produced for one invocation
// after condition filtering. Created per invocation, owned by it, discarded
// after dispatch.
type JobGraph struct {
	Template string
	Nodes    map[string]*JobNode
	// Order is a deterministic topological order over Nodes.
	Order []string
	// Excluded lists jobs pruned by condition filtering, in template
	// declaration order.
	Excluded []ExcludedJob
	// Resolved is the invocation's input set, carried so gate thresholds
	// referencing inputs can be resolved after execution.
	Resolved ResolvedConfig
	// JobOrder is the template declaration order of all jobs, included or
	// not, used to report verdicts in a stable order.
	JobOrder []string
}

// Node returns the included node with the given id, or nil.
func (g *JobGraph) Node(id string) *JobNode {
	return g.Nodes[id]
}

// Dependents returns ids of included jobs that directly depend on id.
func (g *JobGraph) Dependents(id string) []string {
	var out []string
	for _, nodeID := range g.Order {
		for _, dep := range g.Nodes[nodeID].DependsOn {
			if dep == id {
				out = append(out, nodeID)
				break
			}
		}
	}
	return out
}
