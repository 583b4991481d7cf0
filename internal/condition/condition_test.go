package condition_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourceplane/pipegate/internal/condition"
	"github.com/sourceplane/pipegate/internal/model"
)

func TestEvaluate(t *testing.T) {
	inputs := model.ResolvedConfig{
		"run-coverage": true,
		"publish":      false,
		"language":     "rust",
		"node-version": float64(20),
	}

	t.Run("should treat an empty condition as true", func(t *testing.T) {
		ok, err := condition.Evaluate("", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("   ", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)
	})

	t.Run("should evaluate equality against boolean literals", func(t *testing.T) {
		ok, err := condition.Evaluate("run-coverage == true", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("publish == true", inputs)
		assert.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("should evaluate string and number comparisons", func(t *testing.T) {
		ok, err := condition.Evaluate("language == 'rust'", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate(`language != "python"`, inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("node-version == 20", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)
	})

	t.Run("should evaluate negation and bare boolean inputs", func(t *testing.T) {
		ok, err := condition.Evaluate("run-coverage", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("!publish", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)
	})

	t.Run("should evaluate conjunction and disjunction with parentheses", func(t *testing.T) {
		ok, err := condition.Evaluate("run-coverage && !publish", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("publish || language == 'rust'", inputs)
		assert.Nil(t, err)
		assert.True(t, ok)

		ok, err = condition.Evaluate("(publish || run-coverage) && language == 'go'", inputs)
		assert.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("should fail on undefined input references", func(t *testing.T) {
		_, err := condition.Evaluate("run-benchmarks == true", inputs)
		assert.NotNil(t, err)
		assert.True(t, errors.Is(err, model.ErrUndefinedConditionVariable))
	})

	t.Run("should fail on non-boolean expressions", func(t *testing.T) {
		_, err := condition.Evaluate("language", inputs)
		assert.NotNil(t, err)

		_, err = condition.Evaluate("!language", inputs)
		assert.NotNil(t, err)
	})

	t.Run("should fail on malformed expressions", func(t *testing.T) {
		for _, expr := range []string{
			"run-coverage =",
			"language == ",
			"(publish",
			"publish &&",
			"language == 'rust",
			"publish & run-coverage",
		} {
			_, err := condition.Evaluate(expr, inputs)
			assert.NotNil(t, err, "expected error for %q", expr)
		}
	})
}

func TestValidate(t *testing.T) {
	declared := map[string]bool{
		"run-coverage": true,
		"language":     true,
	}

	t.Run("should accept conditions over declared inputs", func(t *testing.T) {
		assert.Nil(t, condition.Validate("run-coverage && language == 'rust'", declared))
		assert.Nil(t, condition.Validate("", declared))
	})

	t.Run("should reject references to undeclared inputs", func(t *testing.T) {
		err := condition.Validate("run-lint == true", declared)
		assert.True(t, errors.Is(err, model.ErrUndefinedConditionVariable))
	})

	t.Run("should reject structurally broken conditions", func(t *testing.T) {
		assert.NotNil(t, condition.Validate("run-coverage ==", declared))
	})
}
