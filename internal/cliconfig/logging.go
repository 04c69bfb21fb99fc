package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
)

// Logger returns the CLI console logger at the given level. Unknown levels
// log at info.
func Logger(level string) zerolog.Logger {
	lvl, _ := logAdapter.ParseLevel(level)
	return logAdapter.NewConsoleLogger(os.Stderr, lvl)
}
