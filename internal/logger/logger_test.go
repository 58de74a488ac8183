package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitAndFieldHelpers(t *testing.T) {
	l := Init("debug", "")
	assert.Same(t, l, Get())
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	var buf bytes.Buffer
	out := l.Out
	l.SetOutput(&buf)
	defer l.SetOutput(out)

	Info(Fields{"query_id": "abc"}, "query done")
	Warn(nil, "no fields")

	assert.Contains(t, buf.String(), "query done")
	assert.Contains(t, buf.String(), "abc")
	assert.Contains(t, buf.String(), "no fields")
}
