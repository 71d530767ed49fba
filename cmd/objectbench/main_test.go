package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRunMemoryBackend(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := run(logger, "memory", "", "", "", 2, 8, 4096, "bench", "bench-password"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := run(logger, "bogus", "", "", "", 1, 1, 4096, "bench", "bench-password"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
