package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "order_id", "ORD-1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"storefront"`)
	assert.Contains(t, out, `"order_id":"ORD-1"`)

	buf.Reset()
	NewLogger(&buf, "nonsense").Info("default level")
	assert.Contains(t, buf.String(), "default level")
}
