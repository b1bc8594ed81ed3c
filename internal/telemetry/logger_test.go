package telemetry

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaultConfig(t *testing.T) {
	logger := New(nil)
	if logger == nil {
		t.Fatal("New(nil) returned nil")
	}
	if logger.level != LevelInfo {
		t.Errorf("level = %v, want LevelInfo", logger.level)
	}
}

func TestLoggerLevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("also should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn message in output, got %q", buf.String())
	}
}

func TestLoggerFieldsRendered(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelDebug, Output: &buf})

	logger.Debug("registered datatype", "handle", 7, "strategy", "Primitive")
	output := buf.String()
	if !strings.Contains(output, "handle=7") {
		t.Errorf("expected handle=7 in output, got %q", output)
	}
	if !strings.Contains(output, "strategy=Primitive") {
		t.Errorf("expected strategy=Primitive in output, got %q", output)
	}
	if !strings.Contains(output, "DEBUG") {
		t.Errorf("expected level tag in output, got %q", output)
	}
}

func TestLoggerWithComponentAndBaseFields(t *testing.T) {
	var buf bytes.Buffer
	root := New(&Config{Level: LevelDebug, Output: &buf})
	child := root.With("transfer", "handle", 3)

	child.Info("progress", "cursor", 10)
	output := buf.String()
	if !strings.Contains(output, "[transfer]") {
		t.Errorf("expected component tag [transfer] in output, got %q", output)
	}
	if !strings.Contains(output, "handle=3") {
		t.Errorf("expected inherited base field handle=3 in output, got %q", output)
	}
	if !strings.Contains(output, "cursor=10") {
		t.Errorf("expected call-site field cursor=10 in output, got %q", output)
	}
}

func TestLoggerWithSharesOutputAndLock(t *testing.T) {
	var buf bytes.Buffer
	root := New(&Config{Level: LevelInfo, Output: &buf})
	a := root.With("a")
	b := root.With("b")

	a.Info("from a")
	b.Info("from b")

	output := buf.String()
	if !strings.Contains(output, "[a]") || !strings.Contains(output, "[b]") {
		t.Fatalf("expected both child loggers to write to the shared output, got %q", output)
	}
}

func TestFormatValueQuotesWhitespace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, Output: &buf})
	logger.Info("msg", "note", "has space")

	output := buf.String()
	if !strings.Contains(output, `note="has space"`) {
		t.Errorf("expected quoted field with embedded space, got %q", output)
	}
}

func TestDefaultAndSetDefault(t *testing.T) {
	var buf bytes.Buffer
	custom := New(&Config{Level: LevelDebug, Output: &buf})
	SetDefault(custom)
	defer SetDefault(New(nil))

	if Default() != custom {
		t.Fatal("Default() did not return the logger set by SetDefault")
	}
	Default().Debug("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("expected message logged through Default(), got %q", buf.String())
	}
}
