// Package resolve validates a caller-supplied configuration against a
// template's input schema, applying defaults and type coercion, and checks
// that every secret reference the template requires was supplied. Secret
// values are never seen here: a secret is a reference, not a payload.
package resolve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sourceplane/pipegate/internal/model"
)

// Resolve walks the template's input schema in declared order and produces
// the invocation's immutable ResolvedConfig. Strict mode: raw keys not
// declared in the schema are rejected rather than silently ignored.
func Resolve(tpl *model.Template, raw map[string]interface{}, secretRefs []string) (model.ResolvedConfig, error) {
	resolved := make(model.ResolvedConfig, len(tpl.Inputs))

	for i := range tpl.Inputs {
		spec := &tpl.Inputs[i]
		if rawValue, ok := raw[spec.Name]; ok {
			value, err := coerce(spec, rawValue)
			if err != nil {
				return nil, &model.ValidationError{Template: tpl.Name, Input: spec.Name, Err: err}
			}
			resolved[spec.Name] = value
			continue
		}

		if spec.Default != nil {
			value, err := coerce(spec, spec.Default)
			if err != nil {
				// The catalog validates defaults at load, so this is
				// unreachable for catalog-served templates.
				return nil, &model.ValidationError{Template: tpl.Name, Input: spec.Name, Err: err}
			}
			resolved[spec.Name] = value
			continue
		}

		if spec.Required {
			return nil, &model.ValidationError{Template: tpl.Name, Input: spec.Name, Err: model.ErrMissingRequiredInput}
		}
		// Optional without default: left absent.
	}

	if err := checkUnknown(tpl, raw); err != nil {
		return nil, err
	}
	if err := checkSecrets(tpl, secretRefs); err != nil {
		return nil, err
	}

	return resolved, nil
}

func checkUnknown(tpl *model.Template, raw map[string]interface{}) error {
	var unknown []string
	for key := range raw {
		if tpl.Input(key) == nil {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &model.ValidationError{
		Template: tpl.Name,
		Input:    unknown[0],
		Err:      fmt.Errorf("%w: %s", model.ErrUnknownInput, strings.Join(unknown, ", ")),
	}
}

func checkSecrets(tpl *model.Template, secretRefs []string) error {
	supplied := make(map[string]bool, len(secretRefs))
	for _, ref := range secretRefs {
		supplied[ref] = true
	}
	for _, name := range tpl.Secrets {
		if !supplied[name] {
			return &model.ValidationError{
				Template: tpl.Name,
				Err:      fmt.Errorf("%w: %s", model.ErrMissingSecret, name),
			}
		}
	}
	return nil
}

// coerce converts a raw scalar to the input's declared kind. String forms of
// booleans and numbers are accepted so flag-style "k=v" input works; anything
// else is a type mismatch.
func coerce(spec *model.InputSpec, raw interface{}) (interface{}, error) {
	switch spec.Kind {
	case model.InputString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("%w: expected string, got %T", model.ErrTypeMismatch, raw)

	case model.InputBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", model.ErrTypeMismatch, v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("%w: expected boolean, got %T", model.ErrTypeMismatch, raw)

	case model.InputNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", model.ErrTypeMismatch, v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("%w: expected number, got %T", model.ErrTypeMismatch, raw)

	case model.InputEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected one of %v, got %T", model.ErrTypeMismatch, spec.Allowed, raw)
		}
		for _, allowed := range spec.Allowed {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %q not in %v", model.ErrInvalidEnumValue, s, spec.Allowed)
	}

	return nil, fmt.Errorf("%w: unsupported input kind %s", model.ErrTypeMismatch, spec.Kind)
}
