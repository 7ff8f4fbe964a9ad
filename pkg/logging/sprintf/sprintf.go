package sprintf

import (
	"log"
	"os"
)

// SprintfLogger writes level-tagged lines through the standard library logger
type SprintfLogger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

func NewStdSprintfLogger() SprintfLogger {
	return &stdSprintfLogger{
		logger: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

type stdSprintfLogger struct {
	logger *log.Logger
}

func (l *stdSprintfLogger) Debugf(format string, args ...interface{}) {
	l.logger.Printf("DEBUG "+format, args...)
}

func (l *stdSprintfLogger) Infof(format string, args ...interface{}) {
	l.logger.Printf("INFO  "+format, args...)
}

func (l *stdSprintfLogger) Warnf(format string, args ...interface{}) {
	l.logger.Printf("WARN  "+format, args...)
}

func (l *stdSprintfLogger) Errorf(format string, args ...interface{}) {
	l.logger.Printf("ERROR "+format, args...)
}
