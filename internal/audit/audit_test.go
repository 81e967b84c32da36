package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogCommandStart(t *testing.T) {
	t.Setenv("MODEL_TYPE", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-secret-value")

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogCommandStart(context.Background(), log, "ask", "")

	out := buf.String()
	if !strings.Contains(out, "command=ask") {
		t.Errorf("missing command attr: %s", out)
	}
	if !strings.Contains(out, "config_file=none") {
		t.Errorf("missing config_file attr: %s", out)
	}
	if !strings.Contains(out, "MODEL_TYPE=openai") {
		t.Errorf("missing MODEL_TYPE attr: %s", out)
	}
	// Secrets appear as presence only, never as their values.
	if strings.Contains(out, "sk-secret-value") {
		t.Errorf("secret value leaked: %s", out)
	}
	if !strings.Contains(out, "OPENAI_API_KEY=set") {
		t.Errorf("missing redacted key attr: %s", out)
	}
}

func TestLogCommandStart_HomeRedacted(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogCommandStart(context.Background(), log, "index", "/home/dev/.talkcode/config.yaml")

	out := buf.String()
	if !strings.Contains(out, "config_file=~/.talkcode/config.yaml") {
		t.Errorf("home directory not redacted: %s", out)
	}
}
