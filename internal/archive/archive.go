// Package archive persists checker snapshots outside the process so watch
// state survives restarts. Exactly one snapshot is stored: Save replaces
// whatever a previous run left behind.
package archive

import (
	"context"
	"fmt"

	"github.com/webwatch/webwatch/internal/checker"
)

// Store is the persistence port. Implementations are safe for use from a
// single goroutine at a time, which is how the service calls them (restore
// on boot, save on shutdown or on demand).
type Store interface {
	Save(ctx context.Context, snap *checker.Snapshot) error
	Load(ctx context.Context) (*checker.Snapshot, error)
	Close() error
}

// Open dispatches on driver: "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", driver)
	}
}
