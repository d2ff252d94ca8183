package log

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	color.NoColor = true
	SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetDebug(false)
	})
	return buf
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Info("loaded %d resources", 3)
	Warn("slow query")
	Error("boom: %v", "db down")

	out := buf.String()
	assert.Contains(t, out, "[INFO] loaded 3 resources")
	assert.Contains(t, out, "[WARN] slow query")
	assert.Contains(t, out, "[ERROR] boom: db down")
}

func TestRequestIDIsPrefixed(t *testing.T) {
	buf := capture(t)

	ctx := WithRequestID(context.Background(), "abc-123")
	WarnWithContext(ctx, "rolled back")

	assert.Equal(t, "abc-123", RequestID(ctx))
	assert.Contains(t, buf.String(), "[WARN] [req_id=abc-123] rolled back")
}

func TestDebugIsGated(t *testing.T) {
	buf := capture(t)

	Debug("hidden")
	Dump("hidden too")
	assert.Empty(t, buf.String())

	SetDebug(true)
	Debug("visible")
	Dump(struct{ Name string }{"apple"})
	assert.Contains(t, buf.String(), "[DEBUG] visible")
	assert.Contains(t, buf.String(), "apple")
}
