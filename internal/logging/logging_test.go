package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		description string
		level       string
		format      string
		hasError    bool
		enabled     zapcore.Level
	}{
		{description: "json info", level: "info", format: "json", enabled: zapcore.InfoLevel},
		{description: "default format", level: "debug", enabled: zapcore.DebugLevel},
		{description: "console", level: "warn", format: "console", enabled: zapcore.WarnLevel},
		{description: "bad level", level: "loud", format: "json", hasError: true},
		{description: "bad format", level: "info", format: "xml", hasError: true},
	}
	for _, testCase := range testCases {
		logger, err := New(testCase.level, testCase.format)
		if testCase.hasError {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.True(t, logger.Core().Enabled(testCase.enabled), testCase.description)
		assert.False(t, logger.Core().Enabled(testCase.enabled-1), testCase.description)
	}
	assert.NotNil(t, OrNop(nil))
}
