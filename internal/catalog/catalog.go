// Package catalog loads and serves the immutable registry of pipeline
// templates. Templates come either from a directory of YAML files or from
// the builtin set embedded in the binary. Every document is checked against
// the catalog meta-schema before decoding, then semantically validated; the
// catalog performs no I/O after the initial load and lookups need no
// locking.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/raystack/salt/log"
	"gopkg.in/yaml.v3"

	"github.com/sourceplane/pipegate/internal/model"
)

// Catalog is the process-wide template registry, read-only after load.
type Catalog struct {
	templates map[string]*model.Template
	names     []string
}

// Get returns the template with the given name, or a ValidationError wrapping
// model.ErrUnknownTemplate.
func (c *Catalog) Get(name string) (*model.Template, error) {
	tpl, ok := c.templates[name]
	if !ok {
		return nil, &model.ValidationError{
			Template: name,
			Err:      fmt.Errorf("%w (known: %v)", model.ErrUnknownTemplate, c.names),
		}
	}
	return tpl, nil
}

// Names returns all template names in sorted order.
func (c *Catalog) Names() []string {
	return c.names
}

// Len returns the number of loaded templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// LoadDir loads every *.yaml / *.yml file under dir (non-recursive) as a
// catalog document. Duplicate template names across files are an authoring
// bug and fail the load.
func LoadDir(logger log.Logger, dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &model.CatalogError{Err: fmt.Errorf("failed to access catalog directory %s: %w", dir, err)}
	}
	if !info.IsDir() {
		return nil, &model.CatalogError{Err: fmt.Errorf("catalog path is not a directory: %s", dir)}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &model.CatalogError{Err: fmt.Errorf("failed to read catalog directory %s: %w", dir, err)}
	}

	var docs []namedDoc
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &model.CatalogError{Err: fmt.Errorf("failed to read catalog file %s: %w", path, err)}
		}
		docs = append(docs, namedDoc{source: path, data: data})
	}

	if len(docs) == 0 {
		return nil, &model.CatalogError{Err: fmt.Errorf("no template files found in catalog path: %s", dir)}
	}

	return build(logger, docs)
}

type namedDoc struct {
	source string
	data   []byte
}

func build(logger log.Logger, docs []namedDoc) (*Catalog, error) {
	cat := &Catalog{templates: make(map[string]*model.Template)}

	for _, doc := range docs {
		// Meta-schema validation catches shape errors with a usable
		// message before yaml decoding flattens them.
		if err := validateDocument(doc.data); err != nil {
			return nil, &model.CatalogError{Err: fmt.Errorf("%s: %w", doc.source, err)}
		}

		var file model.TemplateFile
		if err := yaml.Unmarshal(doc.data, &file); err != nil {
			return nil, &model.CatalogError{Err: fmt.Errorf("failed to parse catalog file %s: %w", doc.source, err)}
		}

		var errs error
		for i := range file.Templates {
			tpl := &file.Templates[i]
			if _, exists := cat.templates[tpl.Name]; exists {
				errs = multierror.Append(errs, &model.CatalogError{
					Template: tpl.Name,
					Err:      fmt.Errorf("duplicate template name (also defined elsewhere)"),
				})
				continue
			}
			if err := validateTemplate(tpl); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			cat.templates[tpl.Name] = tpl
		}
		if errs != nil {
			return nil, errs
		}

		logger.Debug("loaded catalog document", "source", doc.source, "templates", len(file.Templates))
	}

	for name := range cat.templates {
		cat.names = append(cat.names, name)
	}
	sort.Strings(cat.names)

	logger.Info(fmt.Sprintf("catalog loaded with %d templates", len(cat.templates)))
	return cat, nil
}
