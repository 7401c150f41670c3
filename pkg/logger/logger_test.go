package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestGetLoggerTagsPrefix(t *testing.T) {
	var buf bytes.Buffer
	base.SetOutput(&buf)
	base.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() { base.SetOutput(os.Stdout) })

	GetLogger("dupeindex").Info("hello")

	assert.Contains(t, buf.String(), "dupeindex")
	assert.Contains(t, buf.String(), "hello")
}

func TestInitVerbosityControlsLevel(t *testing.T) {
	Init("", 0)
	assert.Equal(t, logrus.InfoLevel, base.GetLevel())

	Init("", 1)
	assert.Equal(t, logrus.DebugLevel, base.GetLevel())

	Init("", 2)
	assert.Equal(t, logrus.TraceLevel, base.GetLevel())
}

func TestGetLoggerDebugHiddenAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	base.SetOutput(&buf)
	base.SetLevel(logrus.InfoLevel)
	t.Cleanup(func() { base.SetOutput(os.Stdout) })

	GetLogger("x").Debug("quiet")
	assert.False(t, strings.Contains(buf.String(), "quiet"))
}
