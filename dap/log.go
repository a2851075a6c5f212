package dap

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	loggerMu sync.RWMutex
	logger   = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "dap",
		Level:  log.WarnLevel,
	})
)

// SetLogger replaces the package-level logger, e.g. to raise the level or
// redirect output. Passing nil restores a discarding logger.
func SetLogger(l *log.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		l = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dap"})
		l.SetLevel(log.FatalLevel + 1)
		logger = l
		return
	}
	logger = l
}

func currentLogger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
