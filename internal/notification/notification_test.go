package notification

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerNotifierLogsVerificationLink(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewTextHandler(&buf, nil)), "http://portal.test/verify-email")

	if err := n.Send(context.Background(), EmailVerification("a@example.com", "tok en")); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "http://portal.test/verify-email?token=tok+en") {
		t.Fatalf("expected verification link, got %q", out)
	}
	if !strings.Contains(out, "to=a@example.com") {
		t.Fatalf("expected destination, got %q", out)
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: "other"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
