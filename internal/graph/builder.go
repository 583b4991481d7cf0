// Package graph expands a template plus a resolved input set into the
// dependency-ordered job graph for one invocation. Jobs whose condition
// evaluates false are excluded from the graph entirely (never dispatched)
// but recorded so the final verdict can report them as skipped; exclusion
// propagates to transitive dependents. Command placeholders are substituted
// here, at build time, so the dispatcher never sees an unresolved reference.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/sourceplane/pipegate/internal/condition"
	"github.com/sourceplane/pipegate/internal/model"
)

// Builder expands templates into job graphs. Parsed command templates are
// cached, keyed by template name and job id, so repeated invocations of the
// same template do not re-parse.
type Builder struct {
	commandCache map[string]*template.Template
}

// NewBuilder creates a Builder with an empty command-template cache.
func NewBuilder() *Builder {
	return &Builder{commandCache: make(map[string]*template.Template)}
}

// Build produces the invocation's JobGraph. Condition evaluation failures
// are caller errors (an optional input the condition needs may simply not
// have been supplied); a cycle among included jobs is a catalog-authoring
// bug since conditions cannot introduce edges.
func (b *Builder) Build(tpl *model.Template, resolved model.ResolvedConfig) (*model.JobGraph, error) {
	g := &model.JobGraph{
		Template: tpl.Name,
		Nodes:    make(map[string]*model.JobNode, len(tpl.Jobs)),
		Resolved: resolved.Clone(),
	}

	excluded := make(map[string]string, len(tpl.Jobs))
	for i := range tpl.Jobs {
		job := &tpl.Jobs[i]
		g.JobOrder = append(g.JobOrder, job.ID)

		ok, err := condition.Evaluate(job.Condition, resolved)
		if err != nil {
			return nil, &model.ValidationError{
				Template: tpl.Name,
				Err:      fmt.Errorf("job %s: %w", job.ID, err),
			}
		}
		if !ok {
			excluded[job.ID] = model.ReasonConditionFalse
		}
	}

	// Exclusion cascades: a job depending on an excluded job can never run.
	// Iterate to a fixpoint; dependencies may reference any declared job.
	for changed := true; changed; {
		changed = false
		for i := range tpl.Jobs {
			job := &tpl.Jobs[i]
			if _, gone := excluded[job.ID]; gone {
				continue
			}
			for _, dep := range job.DependsOn {
				if _, gone := excluded[dep]; gone {
					excluded[job.ID] = model.ReasonUpstreamExcluded
					changed = true
					break
				}
			}
		}
	}

	for i := range tpl.Jobs {
		job := &tpl.Jobs[i]
		if reason, gone := excluded[job.ID]; gone {
			g.Excluded = append(g.Excluded, model.ExcludedJob{ID: job.ID, Reason: reason})
			continue
		}

		command, err := b.renderCommand(tpl, job, resolved)
		if err != nil {
			return nil, err
		}

		node := &model.JobNode{
			ID:        job.ID,
			Command:   command,
			DependsOn: append([]string(nil), job.DependsOn...),
			Gates:     append([]model.GateSpec(nil), job.Gates...),
		}
		if job.Timeout != "" {
			timeout, err := time.ParseDuration(job.Timeout)
			if err != nil {
				return nil, &model.CatalogError{Template: tpl.Name, Job: job.ID, Err: fmt.Errorf("timeout %q is not a duration", job.Timeout)}
			}
			node.Timeout = timeout
		}
		g.Nodes[job.ID] = node
	}

	order, err := topologicalOrder(g.Nodes)
	if err != nil {
		return nil, &model.CatalogError{Template: tpl.Name, Err: err}
	}
	g.Order = order

	return g, nil
}

// commandContext is the substitution context for command templates. Inputs
// with identifier-safe names are addressable as {{.name}}; any input,
// hyphenated ones included, as {{.Input "name"}}.
type commandContext map[string]interface{}

// Input returns the resolved value for name, erroring on unresolved
// references so they surface at build time rather than inside the backend.
func (c commandContext) Input(name string) (interface{}, error) {
	value, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("input %s has no resolved value", name)
	}
	return value, nil
}

// renderCommand substitutes resolved input values into the job's command.
func (b *Builder) renderCommand(tpl *model.Template, job *model.JobSpec, resolved model.ResolvedConfig) (string, error) {
	cacheKey := fmt.Sprintf("%s:%s", tpl.Name, job.ID)

	cmdTpl, cached := b.commandCache[cacheKey]
	if !cached {
		var err error
		cmdTpl, err = template.New(cacheKey).Option("missingkey=error").Parse(job.Command)
		if err != nil {
			return "", &model.CatalogError{Template: tpl.Name, Job: job.ID, Err: fmt.Errorf("invalid command template: %w", err)}
		}
		b.commandCache[cacheKey] = cmdTpl
	}

	var buf strings.Builder
	if err := cmdTpl.Execute(&buf, commandContext(resolved)); err != nil {
		return "", &model.ValidationError{
			Template: tpl.Name,
			Err:      fmt.Errorf("job %s: command references unresolved input: %w", job.ID, err),
		}
	}
	return buf.String(), nil
}

// topologicalOrder runs Kahn's algorithm with a sorted ready queue so the
// order is deterministic for identical graphs.
func topologicalOrder(nodes map[string]*model.JobNode) ([]string, error) {
	inDegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for id := range nodes {
		inDegree[id] = 0
	}
	for id, node := range nodes {
		for _, dep := range node.DependsOn {
			if _, exists := nodes[dep]; !exists {
				return nil, fmt.Errorf("job %s depends on unknown job %s", id, dep)
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	queue := make([]string, 0, len(nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	ordered := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, current)

		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}

	if len(ordered) != len(nodes) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w involving jobs %v", model.ErrCycle, stuck)
	}

	return ordered, nil
}
