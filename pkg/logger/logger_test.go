package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	orig := L()
	SetLogger(zap.New(core))
	defer SetLogger(orig)
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg %d", 1)
	Errorf("error-msg")

	if n := logs.FilterMessage("debug-msg").Len(); n != 0 {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if n := logs.FilterMessage("info-msg").Len(); n != 0 {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if n := logs.FilterMessage("warn-msg 1").Len(); n != 1 {
		t.Fatalf("warn message missing: %v", logs.All())
	}
	if n := logs.FilterMessage("error-msg").Len(); n != 1 {
		t.Fatalf("error message missing: %v", logs.All())
	}

	Init("info")
	Info("hello")
	if logs.FilterMessage("hello").Len() != 1 {
		t.Fatalf("Info expected at info level, got: %v", logs.All())
	}
}
