package checks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Foreman/internal/trailer"
)

// fixedNow — детерминированное время для отчётов в тестах.
func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestRun_FilesystemOK(t *testing.T) {
	r := New(Config{
		TempDir: t.TempDir(),
		Probes:  []ToolProbe{},
		Now:     fixedNow,
	})

	report := r.Run(context.Background(), "runner.selftest")

	if !report.Checks[CheckFilesystem] {
		t.Error("filesystem check should pass in a writable temp dir")
	}
	if !report.Success {
		t.Error("success should follow the filesystem check")
	}
	if report.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", report.ExitCode)
	}
	if !strings.Contains(report.Stdout, "Checking filesystem... OK") {
		t.Error("narrative should report the filesystem check")
	}
}

func TestRun_FilesystemFailForcesFailure(t *testing.T) {
	// Несуществующий каталог: CreateTemp упадёт.
	r := New(Config{
		TempDir: "/nonexistent/foreman-test-dir",
		Probes: []ToolProbe{
			// Advisory-проба проходит, но успех определяет только filesystem.
			{Key: "shell_ok", Label: "shell", Command: "sh", Args: []string{"-c", "exit 0"}},
		},
		Now: fixedNow,
	})

	report := r.Run(context.Background(), "runner.selftest")

	if report.Checks[CheckFilesystem] {
		t.Error("filesystem check should fail")
	}
	if !report.Checks["shell_ok"] {
		t.Error("advisory probe should still run and pass")
	}
	if report.Success {
		t.Error("success must be false when the filesystem check fails")
	}
	if report.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", report.ExitCode)
	}
}

func TestRun_MissingToolIsAdvisory(t *testing.T) {
	r := New(Config{
		TempDir: t.TempDir(),
		Probes: []ToolProbe{
			{Key: "missing_ok", Label: "missing", Command: "definitely-not-a-real-tool-xyz"},
		},
		Now: fixedNow,
	})

	report := r.Run(context.Background(), "runner.selftest")

	if report.Checks["missing_ok"] {
		t.Error("probe for a missing tool should fail")
	}
	if !report.Success {
		t.Error("a failed advisory probe must not flip overall success")
	}
	if !strings.Contains(report.Stdout, "Checking missing... FAIL") {
		t.Error("narrative should report the failed probe")
	}
}

func TestRun_TrailersAreExtractable(t *testing.T) {
	r := New(Config{
		TempDir: t.TempDir(),
		Probes: []ToolProbe{
			{Key: "shell_ok", Label: "shell", Command: "sh", Args: []string{"-c", "echo shell 1.0"}},
		},
		Now: fixedNow,
	})

	report := r.Run(context.Background(), "runner.reconcile")

	payload, ok := trailer.Extract(report.Stdout, MarkerOrderResult)
	if !ok {
		t.Fatal("ORDER_RESULT_JSON trailer should be extractable")
	}
	result, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("order result should be a JSON object, got %T", payload)
	}
	if result["success"] != true {
		t.Error("expected success=true in order result")
	}
	if result["type"] != "runner.reconcile" {
		t.Errorf("expected order type in result, got %v", result["type"])
	}
	if result["timestamp"] != fixedNow().Format(time.RFC3339) {
		t.Errorf("unexpected timestamp %v", result["timestamp"])
	}

	factsPayload, ok := trailer.Extract(report.Stdout, MarkerPlatformFacts)
	if !ok {
		t.Fatal("PLATFORM_FACTS_JSON trailer should be extractable")
	}
	facts, ok := factsPayload.(map[string]any)
	if !ok {
		t.Fatalf("facts should be a JSON object, got %T", factsPayload)
	}
	if facts["component"] != "runner" {
		t.Errorf("expected component runner, got %v", facts["component"])
	}
	checks, ok := facts["checks"].(map[string]any)
	if !ok {
		t.Fatal("facts should carry the checks mapping")
	}
	if checks["shell_ok"] != true {
		t.Error("expected shell_ok=true in facts checks")
	}
}

func TestRun_StderrConcatenation(t *testing.T) {
	r := New(Config{
		TempDir: t.TempDir(),
		Probes: []ToolProbe{
			{Key: "a_ok", Label: "a", Command: "sh", Args: []string{"-c", "echo err-a 1>&2"}},
			{Key: "b_ok", Label: "b", Command: "sh", Args: []string{"-c", "echo err-b 1>&2; exit 3"}},
		},
		Now: fixedNow,
	})

	report := r.Run(context.Background(), "runner.selftest")

	if !strings.Contains(report.Stderr, "err-a") || !strings.Contains(report.Stderr, "err-b") {
		t.Errorf("stderr should concatenate probe error streams, got %q", report.Stderr)
	}
	if report.Checks["a_ok"] != true || report.Checks["b_ok"] != false {
		t.Error("probe outcomes should reflect exit codes")
	}
}

func TestRun_AllChecksAlwaysRun(t *testing.T) {
	// Первая проба падает, вторая всё равно должна выполниться.
	r := New(Config{
		TempDir: t.TempDir(),
		Probes: []ToolProbe{
			{Key: "fail_ok", Label: "fail", Command: "sh", Args: []string{"-c", "exit 1"}},
			{Key: "pass_ok", Label: "pass", Command: "sh", Args: []string{"-c", "exit 0"}},
		},
		Now: fixedNow,
	})

	report := r.Run(context.Background(), "runner.selftest")

	if len(report.Checks) != 3 {
		t.Fatalf("expected 3 check outcomes, got %d", len(report.Checks))
	}
	if report.Checks["pass_ok"] != true {
		t.Error("later probes must run even after an earlier failure")
	}
}
