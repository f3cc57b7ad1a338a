package badger

import (
	"github.com/marmos91/dittosession/internal/logger"
)

// badgerLogger routes Badger's own logging into the process logger. Badger
// is chatty at INFO, so its informational messages are logged at DEBUG.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any)   { logger.Errorf("badger: "+format, args...) }
func (badgerLogger) Warningf(format string, args ...any) { logger.Warnf("badger: "+format, args...) }
func (badgerLogger) Infof(format string, args ...any)    { logger.Debugf("badger: "+format, args...) }
func (badgerLogger) Debugf(format string, args ...any)   { logger.Debugf("badger: "+format, args...) }
