package logging

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestEncoderWritesUTCTimestamps(t *testing.T) {
	enc := zapcore.NewJSONEncoder(encoderConfig())
	kathmandu := time.FixedZone("NPT", 5*3600+45*60)
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Date(2024, 3, 1, 14, 45, 0, 0, kathmandu),
		Message: "session transition",
	}

	buf, err := enc.EncodeEntry(entry, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	defer buf.Free()

	line := buf.String()
	if !strings.Contains(line, `"ts":"2024-03-01T09:00:00Z"`) {
		t.Fatalf("expected UTC timestamp, got %s", line)
	}
	if !strings.Contains(line, `"level":"info"`) || !strings.Contains(line, `"msg":"session transition"`) {
		t.Fatalf("unexpected keys in %s", line)
	}
}

func TestFromContextFallback(t *testing.T) {
	fallback := zap.NewExample()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatal("expected fallback logger")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Fatal("expected nop logger for nil fallback")
	}

	scoped := zap.NewNop()
	ctx := WithContext(context.Background(), scoped)
	if got := FromContext(ctx, fallback); got != scoped {
		t.Fatal("expected request-scoped logger")
	}
}
