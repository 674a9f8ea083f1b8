package shellexec

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecute_CapturesStdout(t *testing.T) {
	r := &ShellRunner{}
	result, err := r.Execute(context.Background(), "echo hello", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Fatalf("expected stdout hello, got %q", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	r := &ShellRunner{}
	result, err := r.Execute(context.Background(), "ls /definitely/not/here", false)
	if err != nil {
		t.Fatalf("expected exit code in result, got error: %v", err)
	}
	if result.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if result.Stderr == "" {
		t.Fatal("expected stderr output")
	}
}

func TestExecute_Timeout(t *testing.T) {
	r := &ShellRunner{Timeout: 50 * time.Millisecond}
	_, err := r.Execute(context.Background(), "sleep 2", false)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
