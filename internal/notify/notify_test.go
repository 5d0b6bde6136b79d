package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogNotifierSend(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(zerolog.New(&buf))

	if err := notifier.Send(context.Background(), "*PAPER BUY* test"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "PAPER BUY") {
		t.Fatalf("log output missing notice: %s", buf.String())
	}
}

func TestLogNotifierCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := NewLogNotifier(zerolog.Nop())
	if err := notifier.Send(ctx, "late"); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
