package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/sourceplane/pipegate/internal/condition"
	"github.com/sourceplane/pipegate/internal/model"
)

// validateTemplate enforces the semantic invariants the meta-schema cannot
// express: required inputs carry no default, enum defaults stay inside the
// allowed set, job ids are unique, dependsOn references declared jobs, the
// dependency relation is acyclic, conditions only reference declared inputs,
// and gate thresholds parse as a number or an inputs.<name> reference.
func validateTemplate(tpl *model.Template) error {
	if err := validation.ValidateStruct(tpl,
		validation.Field(&tpl.Name, validation.Required),
		validation.Field(&tpl.Jobs, validation.Required),
	); err != nil {
		return &model.CatalogError{Template: tpl.Name, Err: err}
	}

	var errs error
	declared := make(map[string]bool, len(tpl.Inputs))
	kinds := make(map[string]model.InputKind, len(tpl.Inputs))

	for i := range tpl.Inputs {
		in := &tpl.Inputs[i]
		if err := validateInputSpec(in); err != nil {
			errs = multierror.Append(errs, &model.CatalogError{Template: tpl.Name, Err: err})
		}
		if declared[in.Name] {
			errs = multierror.Append(errs, &model.CatalogError{
				Template: tpl.Name,
				Err:      fmt.Errorf("duplicate input %s", in.Name),
			})
		}
		declared[in.Name] = true
		kinds[in.Name] = in.Kind
	}

	ids := make(map[string]bool, len(tpl.Jobs))
	for i := range tpl.Jobs {
		if ids[tpl.Jobs[i].ID] {
			errs = multierror.Append(errs, &model.CatalogError{
				Template: tpl.Name,
				Job:      tpl.Jobs[i].ID,
				Err:      fmt.Errorf("duplicate job id"),
			})
		}
		ids[tpl.Jobs[i].ID] = true
	}

	for i := range tpl.Jobs {
		job := &tpl.Jobs[i]
		if err := validateJobSpec(job, ids, declared, kinds); err != nil {
			errs = multierror.Append(errs, &model.CatalogError{Template: tpl.Name, Job: job.ID, Err: err})
		}
	}

	if errs != nil {
		return errs
	}

	if err := checkAcyclic(tpl.Jobs); err != nil {
		return &model.CatalogError{Template: tpl.Name, Err: err}
	}

	return nil
}

func validateInputSpec(in *model.InputSpec) error {
	if err := validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Kind, validation.Required, validation.In(
			model.InputString,
			model.InputBoolean,
			model.InputNumber,
			model.InputEnum,
		)),
	); err != nil {
		return err
	}

	if in.Required && in.Default != nil {
		return fmt.Errorf("input %s: required inputs cannot declare a default", in.Name)
	}

	if in.Kind == model.InputEnum {
		if len(in.Allowed) == 0 {
			return fmt.Errorf("input %s: enum inputs must declare allowed values", in.Name)
		}
		if in.Default != nil {
			def, ok := in.Default.(string)
			if !ok {
				return fmt.Errorf("input %s: enum default must be a string", in.Name)
			}
			if !containsString(in.Allowed, def) {
				return fmt.Errorf("input %s: default %q not in allowed values %v", in.Name, def, in.Allowed)
			}
		}
	} else if len(in.Allowed) > 0 {
		return fmt.Errorf("input %s: allowed values are only valid for enum inputs", in.Name)
	}

	if in.Default != nil && in.Kind != model.InputEnum {
		if _, err := coerceDefault(in); err != nil {
			return err
		}
	}

	return nil
}

// coerceDefault checks a declared default against its kind at load time so a
// bad default is a catalog error, not a per-invocation surprise.
func coerceDefault(in *model.InputSpec) (interface{}, error) {
	switch in.Kind {
	case model.InputString, model.InputEnum:
		if s, ok := in.Default.(string); ok {
			return s, nil
		}
	case model.InputBoolean:
		if b, ok := in.Default.(bool); ok {
			return b, nil
		}
	case model.InputNumber:
		switch n := in.Default.(type) {
		case int:
			return float64(n), nil
		case float64:
			return n, nil
		}
	}
	return nil, fmt.Errorf("input %s: default %v does not match kind %s", in.Name, in.Default, in.Kind)
}

func validateJobSpec(job *model.JobSpec, ids, declared map[string]bool, kinds map[string]model.InputKind) error {
	if err := validation.ValidateStruct(job,
		validation.Field(&job.ID, validation.Required),
		validation.Field(&job.Command, validation.Required),
	); err != nil {
		return err
	}

	for _, dep := range job.DependsOn {
		if dep == job.ID {
			return fmt.Errorf("job depends on itself")
		}
		if !ids[dep] {
			return fmt.Errorf("dependsOn %q does not reference a declared job", dep)
		}
	}

	if err := condition.Validate(job.Condition, declared); err != nil {
		return fmt.Errorf("condition: %w", err)
	}

	if job.Timeout != "" {
		if _, err := time.ParseDuration(job.Timeout); err != nil {
			return fmt.Errorf("timeout %q is not a duration", job.Timeout)
		}
	}

	for _, gate := range job.Gates {
		if err := validateGateSpec(&gate, kinds); err != nil {
			return err
		}
	}

	return nil
}

func validateGateSpec(gate *model.GateSpec, kinds map[string]model.InputKind) error {
	if err := validation.ValidateStruct(gate,
		validation.Field(&gate.Metric, validation.Required),
		validation.Field(&gate.Comparator, validation.Required, validation.In(
			model.CompareGTE,
			model.CompareLTE,
			model.CompareEQ,
		)),
		validation.Field(&gate.Threshold, validation.Required),
	); err != nil {
		return err
	}

	if ref, ok := strings.CutPrefix(gate.Threshold, "inputs."); ok {
		kind, declared := kinds[ref]
		if !declared {
			return fmt.Errorf("gate %s: threshold references undeclared input %s", gate.Metric, ref)
		}
		if kind != model.InputNumber {
			return fmt.Errorf("gate %s: threshold input %s must be a number, is %s", gate.Metric, ref, kind)
		}
		return nil
	}
	if _, err := strconv.ParseFloat(gate.Threshold, 64); err != nil {
		return fmt.Errorf("gate %s: threshold %q is neither a number nor an inputs.<name> reference", gate.Metric, gate.Threshold)
	}
	return nil
}

// checkAcyclic runs Kahn's algorithm over the declared jobs and fails with
// model.ErrCycle when some job never becomes processable.
func checkAcyclic(jobs []model.JobSpec) error {
	inDegree := make(map[string]int, len(jobs))
	dependents := make(map[string][]string, len(jobs))
	for _, job := range jobs {
		inDegree[job.ID] = 0
	}
	for _, job := range jobs {
		for _, dep := range job.DependsOn {
			inDegree[job.ID]++
			dependents[dep] = append(dependents[dep], job.ID)
		}
	}

	queue := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if inDegree[job.ID] == 0 {
			queue = append(queue, job.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed != len(jobs) {
		var stuck []string
		for _, job := range jobs {
			if inDegree[job.ID] > 0 {
				stuck = append(stuck, job.ID)
			}
		}
		return fmt.Errorf("%w involving jobs %v", model.ErrCycle, stuck)
	}
	return nil
}

func containsString(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
