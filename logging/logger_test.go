package logging_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/warp/discount-reconciler/logging"
)

func TestLogError_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(&buf)

	logging.LogError(logger, "report", "Run", "process supplier", "S1", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"module":"report"`)
	assert.Contains(t, out, `"data":"S1"`)
	assert.Contains(t, out, `"msg":"boom"`)
}

func TestConfigureLogger_LevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.GetLogger()
	prevLevel, prevOut := logger.GetLevel(), logger.Out
	t.Cleanup(func() {
		logger.SetLevel(prevLevel)
		logger.SetOutput(prevOut)
	})

	logging.ConfigureLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	logging.ConfigureLogger("loud", nil)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel(), "unknown level keeps the current one")
}
