package recskema

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var pkgLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", "recskema").Logger().Level(zerolog.WarnLevel)
	pkgLogger.Store(&l)
}

// SetLogger replaces the logger used for diagnostics such as duplicate
// registrations and poisoned bare names. Stores created with WithLogger keep
// their own logger.
func SetLogger(l zerolog.Logger) { pkgLogger.Store(&l) }

// Logger returns the package logger.
func Logger() zerolog.Logger { return *pkgLogger.Load() }
