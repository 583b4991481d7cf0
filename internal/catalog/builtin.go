package catalog

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/raystack/salt/log"

	"github.com/sourceplane/pipegate/internal/model"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltin loads the template catalog embedded in the binary. The builtin
// set mirrors the pipelines this tool grew out of: language CI, release
// automation, container builds, security scanning and docs deployment.
func LoadBuiltin(logger log.Logger) (*Catalog, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, &model.CatalogError{Err: fmt.Errorf("failed to read embedded catalog: %w", err)}
	}

	var docs []namedDoc
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("builtin/" + entry.Name())
		if err != nil {
			return nil, &model.CatalogError{Err: fmt.Errorf("failed to read embedded catalog file %s: %w", entry.Name(), err)}
		}
		docs = append(docs, namedDoc{source: "builtin/" + entry.Name(), data: data})
	}

	return build(logger, docs)
}
