package tools

import (
	"bytes"
	"strings"
	"testing"
)

func TestExecLauncherStartAndWait(t *testing.T) {
	var out bytes.Buffer
	child, err := ExecLauncher{Stdout: &out}.Start("sh", "-c", "echo ready")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := child.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if strings.TrimSpace(out.String()) != "ready" {
		t.Fatalf("stdout: got %q", out.String())
	}
}

func TestExecLauncherMissingBinary(t *testing.T) {
	if _, err := (ExecLauncher{}).Start("definitely-not-a-binary-xyz"); err == nil {
		t.Fatalf("expected start error")
	}
}

func TestExecLauncherKill(t *testing.T) {
	child, err := ExecLauncher{}.Start("sh", "-c", "sleep 30")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := child.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if err := child.Wait(); err == nil {
		t.Fatalf("expected wait error after kill")
	}
}
