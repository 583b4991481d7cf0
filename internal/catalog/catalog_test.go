package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raystack/salt/log"
	"github.com/stretchr/testify/assert"

	"github.com/sourceplane/pipegate/internal/catalog"
	"github.com/sourceplane/pipegate/internal/model"
)

func writeCatalogFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	assert.Nil(t, err)
}

func TestLoadBuiltin(t *testing.T) {
	cat, err := catalog.LoadBuiltin(log.NewNoop())
	assert.Nil(t, err)

	t.Run("should contain the expected templates", func(t *testing.T) {
		for _, name := range []string{"rust-ci", "python-ci", "node-ci", "release", "docker-build", "security-scan", "docs-deploy"} {
			tpl, err := cat.Get(name)
			assert.Nil(t, err)
			assert.Equal(t, name, tpl.Name)
		}
	})

	t.Run("should declare language as a required enum on release", func(t *testing.T) {
		tpl, err := cat.Get("release")
		assert.Nil(t, err)

		language := tpl.Input("language")
		assert.NotNil(t, language)
		assert.Equal(t, model.InputEnum, language.Kind)
		assert.True(t, language.Required)
		assert.Nil(t, language.Default)
		assert.Contains(t, tpl.Secrets, "CRATES_TOKEN")
	})

	t.Run("should fail lookups of unknown templates", func(t *testing.T) {
		_, err := cat.Get("scala-ci")
		assert.True(t, errors.Is(err, model.ErrUnknownTemplate))

		var verr *model.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("should return sorted names", func(t *testing.T) {
		names := cat.Names()
		assert.Equal(t, cat.Len(), len(names))
		assert.True(t, sortedStrings(names))
	})
}

func sortedStrings(values []string) bool {
	for i := 1; i < len(values); i++ {
		if values[i-1] > values[i] {
			return false
		}
	}
	return true
}

func TestLoadDir(t *testing.T) {
	t.Run("should load a well-formed catalog directory", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "ci.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: smoke
    inputs:
      - name: run-extra
        kind: boolean
        default: false
    jobs:
      - id: build
        command: make build
      - id: extra
        dependsOn: [build]
        condition: run-extra == true
        command: make extra
`)

		cat, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.Nil(t, err)
		assert.Equal(t, []string{"smoke"}, cat.Names())
	})

	t.Run("should fail on a missing directory", func(t *testing.T) {
		_, err := catalog.LoadDir(log.NewNoop(), filepath.Join(t.TempDir(), "absent"))
		var cerr *model.CatalogError
		assert.True(t, errors.As(err, &cerr))
	})

	t.Run("should fail on a document missing required fields", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "broken.yaml", `
apiVersion: pipegate.dev/v1
templates:
  - name: nope
    jobs:
      - id: a
        command: true
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		var cerr *model.CatalogError
		assert.True(t, errors.As(err, &cerr))
	})

	t.Run("should fail with a cycle error on circular dependencies", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "cycle.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: circular
    jobs:
      - id: a
        dependsOn: [c]
        command: echo a
      - id: b
        dependsOn: [a]
        command: echo b
      - id: c
        dependsOn: [b]
        command: echo c
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.True(t, errors.Is(err, model.ErrCycle))
	})

	t.Run("should reject a required input that declares a default", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "bad.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: bad
    inputs:
      - name: version
        kind: string
        required: true
        default: 1.0.0
    jobs:
      - id: a
        command: echo a
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "required inputs cannot declare a default")
	})

	t.Run("should reject an enum default outside its allowed values", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "bad.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: bad
    inputs:
      - name: language
        kind: enum
        allowed: [rust, python]
        default: node
    jobs:
      - id: a
        command: echo a
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "not in allowed values")
	})

	t.Run("should reject conditions over undeclared inputs", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "bad.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: bad
    jobs:
      - id: a
        condition: run-lint == true
        command: echo a
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.True(t, errors.Is(err, model.ErrUndefinedConditionVariable))
	})

	t.Run("should reject gate thresholds that are neither number nor input reference", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "bad.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: bad
    jobs:
      - id: a
        command: echo a
        gates:
          - metric: coverage-percent
            comparator: ">="
            threshold: plenty
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "neither a number nor an inputs.<name> reference")
	})

	t.Run("should reject dependencies on undeclared jobs", func(t *testing.T) {
		dir := t.TempDir()
		writeCatalogFile(t, dir, "bad.yaml", `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: bad
    jobs:
      - id: a
        dependsOn: [ghost]
        command: echo a
`)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "does not reference a declared job")
	})

	t.Run("should reject duplicate template names across files", func(t *testing.T) {
		dir := t.TempDir()
		doc := `
apiVersion: pipegate.dev/v1
kind: TemplateCatalog
templates:
  - name: twin
    jobs:
      - id: a
        command: echo a
`
		writeCatalogFile(t, dir, "one.yaml", doc)
		writeCatalogFile(t, dir, "two.yaml", doc)

		_, err := catalog.LoadDir(log.NewNoop(), dir)
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "duplicate template name")
	})
}
