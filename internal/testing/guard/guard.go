// Package guard switches the process into test mode when imported, so
// entrypoints exercised from tests never dial Postgres or Redis.
package guard

import (
	"os"

	"github.com/tradesdesk/tradesdesk/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); !set {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
	app.RefreshTestMode()
}
