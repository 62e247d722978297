package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init("debug", "production")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Init("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	_, isText := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
