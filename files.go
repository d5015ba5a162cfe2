package admitme

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package. Each dialect
// keeps its scripts under data/sql/migrations/<dialect>.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
