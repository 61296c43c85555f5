//go:build integration

package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// shelfBin is the path to the built shelf binary.
	shelfBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with its output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// testConfigYAML configures the types the suite works with. The tag
// type declares a relation to note so the config wiring path is covered.
const testConfigYAML = `audit_log: audit.jsonl

types:
  - name: note
    guarded: [secret]
  - name: contact
  - name: tag
    relations: [note]
`

// TestEnv is an isolated environment with its own config and data dirs.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DataDir   string
}

// NewTestEnv creates an environment with the suite config pre-written.
func NewTestEnv(t *testing.T) *TestEnv {
	env := NewBareEnv(t)
	if err := os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return env
}

// NewBareEnv creates an environment with empty config and data dirs, for
// tests that exercise shelf init scaffolding.
func NewBareEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build shelf: %v", buildErr)
	}
	if shelfBin == "" {
		t.Fatal("shelf binary not built (shelfBin is empty)")
	}

	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "config")
	dataDir := filepath.Join(tempDir, "data")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}

	return &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: configDir,
		DataDir:   dataDir,
	}
}

// CmdResult holds the result of one shelf invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunShelf executes the shelf binary with the given arguments, pointing
// it at the environment's config and data directories.
func (e *TestEnv) RunShelf(args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...)
	cmd := exec.Command(shelfBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run shelf: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunShelf executes shelf and fails the test on a non-zero exit.
func (e *TestEnv) MustRunShelf(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunShelf(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("shelf %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// noteRecord mirrors the JSON shape of a note for parsing CLI output.
type noteRecord struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Done   bool   `json:"done"`
	Secret string `json:"secret"`
}

// auditEntry mirrors one line of the audit log.
type auditEntry struct {
	Seq      int64  `json:"seq"`
	TraceID  string `json:"traceId"`
	Type     string `json:"type"`
	EntityID int64  `json:"entityId"`
	Topic    string `json:"topic"`
	Field    string `json:"field"`
}

// ReadJSONLFile reads a JSON lines file and returns one value per line.
func ReadJSONLFile[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSONL file %s: %v", path, err)
	}
	defer f.Close()

	var results []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("failed to parse JSONL line in %s: %v", path, err)
		}
		results = append(results, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to scan JSONL file %s: %v", path, err)
	}
	return results
}
