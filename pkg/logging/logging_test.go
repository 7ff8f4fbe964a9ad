package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Prefix(t *testing.T) {
	var lines []string
	record := func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	logger := NewLogger("[proxy] ", LogFuncs{Infof: record, Errorf: record})
	logger.Infof("setup %s", "done")
	logger.Debugf("dropped")
	logger.LogLevelf(ErrorLevel, "failed: %v", "timeout")

	assert.Equal(t, []string{"[proxy] setup done", "[proxy] failed: timeout"}, lines)
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	assert.NotPanics(t, func() {
		logger.Debugf("x")
		logger.Infof("x")
		logger.Warnf("x")
		logger.Errorf("x")
		logger.LogLevelf(42, "x")
	})
}
