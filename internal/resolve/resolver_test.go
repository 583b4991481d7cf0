package resolve_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourceplane/pipegate/internal/model"
	"github.com/sourceplane/pipegate/internal/resolve"
)

func releaseTemplate() *model.Template {
	return &model.Template{
		Name: "release",
		Inputs: []model.InputSpec{
			{Name: "language", Kind: model.InputEnum, Required: true, Allowed: []string{"rust", "python", "node"}},
			{Name: "version", Kind: model.InputString, Required: true},
			{Name: "publish", Kind: model.InputBoolean, Default: true},
			{Name: "coverage-threshold", Kind: model.InputNumber, Default: 80},
			{Name: "notes", Kind: model.InputString},
		},
		Secrets: []string{"CRATES_TOKEN"},
		Jobs:    []model.JobSpec{{ID: "build", Command: "make dist"}},
	}
}

func TestResolve(t *testing.T) {
	secrets := []string{"CRATES_TOKEN", "GITHUB_TOKEN"}

	t.Run("should apply defaults and coerce flag-style values", func(t *testing.T) {
		resolved, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language": "rust",
			"version":  "1.4.0",
			"publish":  "false",
		}, secrets)
		assert.Nil(t, err)

		assert.Equal(t, "rust", resolved["language"])
		assert.Equal(t, "1.4.0", resolved["version"])
		assert.Equal(t, false, resolved["publish"])
		assert.Equal(t, float64(80), resolved["coverage-threshold"])

		// Optional input without default stays absent.
		_, present := resolved["notes"]
		assert.False(t, present)
	})

	t.Run("should fail with MissingRequiredInput when language is omitted", func(t *testing.T) {
		_, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"version": "1.4.0",
		}, secrets)
		assert.True(t, errors.Is(err, model.ErrMissingRequiredInput))

		var verr *model.ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, "language", verr.Input)
	})

	t.Run("should fail with InvalidEnumValue on out-of-range enum values", func(t *testing.T) {
		_, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language": "fortran",
			"version":  "1.4.0",
		}, secrets)
		assert.True(t, errors.Is(err, model.ErrInvalidEnumValue))
	})

	t.Run("should fail with TypeMismatch on uncoercible values", func(t *testing.T) {
		_, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language": "rust",
			"version":  "1.4.0",
			"publish":  "yep",
		}, secrets)
		assert.True(t, errors.Is(err, model.ErrTypeMismatch))

		_, err = resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language":           "rust",
			"version":            "1.4.0",
			"coverage-threshold": "eighty",
		}, secrets)
		assert.True(t, errors.Is(err, model.ErrTypeMismatch))
	})

	t.Run("should reject unknown keys in strict mode", func(t *testing.T) {
		_, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language": "rust",
			"version":  "1.4.0",
			"verison":  "1.4.0",
		}, secrets)
		assert.True(t, errors.Is(err, model.ErrUnknownInput))
		assert.Contains(t, err.Error(), "verison")
	})

	t.Run("should fail with MissingSecret when a required reference is absent", func(t *testing.T) {
		_, err := resolve.Resolve(releaseTemplate(), map[string]interface{}{
			"language": "rust",
			"version":  "1.4.0",
		}, []string{"GITHUB_TOKEN"})
		assert.True(t, errors.Is(err, model.ErrMissingSecret))
		assert.Contains(t, err.Error(), "CRATES_TOKEN")
	})

	t.Run("should resolve identically on repeated calls", func(t *testing.T) {
		raw := map[string]interface{}{
			"language": "python",
			"version":  "2.0.0",
		}
		first, err := resolve.Resolve(releaseTemplate(), raw, secrets)
		assert.Nil(t, err)
		second, err := resolve.Resolve(releaseTemplate(), raw, secrets)
		assert.Nil(t, err)
		assert.Equal(t, first, second)
	})
}
