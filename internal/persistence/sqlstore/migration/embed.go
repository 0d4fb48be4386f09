package migration

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
)

//go:embed sql
var embedded embed.FS

// Files returns the embedded migrations for the dialect.
func Files(d dialect.Dialect) (fs.FS, error) {
	sub, err := fs.Sub(embedded, "sql/"+string(d))
	if err != nil {
		return nil, fmt.Errorf("migration: no migrations for dialect %q: %w", d, err)
	}
	return sub, nil
}
