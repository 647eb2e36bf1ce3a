package builtin

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/lvfs"
	"github.com/mwantia/lvfs/backend/ephemeral"
	"github.com/mwantia/lvfs/cmd"
	"github.com/mwantia/lvfs/log"
)

func setup(t *testing.T) (*cmd.Registry, *lvfs.FileSystem) {
	t.Helper()

	fs, err := lvfs.Open(t.Context(), ephemeral.NewEphemeralBackend(), lvfs.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	registry, err := cmd.NewRegistry(Commands()...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	return registry, fs
}

func run(t *testing.T, registry *cmd.Registry, fs *lvfs.FileSystem, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	code, err := registry.Execute(t.Context(), fs, &out, args...)
	if err != nil || code != cmd.ExitOK {
		t.Fatalf("%v failed with %d: %v", args, code, err)
	}

	return out.String()
}

func TestCommands_PutGet(t *testing.T) {
	registry, fs := setup(t)
	dir := t.TempDir()

	local := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(local, []byte("hello lvfs"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	run(t, registry, fs, "mkdir", "-p", "/docs/notes")
	run(t, registry, fs, "put", "-q", local, "/docs/notes/hello.txt")

	if out := run(t, registry, fs, "get", "/docs/notes/hello.txt"); out != "hello lvfs" {
		t.Errorf("Unexpected content %q", out)
	}

	target := filepath.Join(dir, "out.txt")
	run(t, registry, fs, "get", "/docs/notes/hello.txt", target)
	if content, _ := os.ReadFile(target); string(content) != "hello lvfs" {
		t.Errorf("Unexpected local content %q", content)
	}

	out := run(t, registry, fs, "ls", "/docs")
	if out != "notes/\n" {
		t.Errorf("Unexpected listing %q", out)
	}

	out = run(t, registry, fs, "ls", "-l", "/docs/notes")
	if !strings.Contains(out, "-rw") || !strings.Contains(out, "10 B") || !strings.Contains(out, "hello.txt") {
		t.Errorf("Unexpected long listing %q", out)
	}

	out = run(t, registry, fs, "stat", "--json", "/docs/notes/hello.txt")
	if !strings.Contains(out, `"size": 10`) || !strings.Contains(out, `"is_dir": false`) {
		t.Errorf("Unexpected stat output %q", out)
	}

	out = run(t, registry, fs, "info")
	if !strings.Contains(out, "ephemeral") || !strings.Contains(out, "Files:        1") {
		t.Errorf("Unexpected info output %q", out)
	}
}

func TestCommands_PutStdin(t *testing.T) {
	registry, fs := setup(t)

	put := &PutCommand{Stdin: strings.NewReader("from stdin")}
	if err := registry.Register(&namedPut{PutCommand: put}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	run(t, registry, fs, "put-stdin", "-", "/stdin.txt")
	if out := run(t, registry, fs, "get", "/stdin.txt"); out != "from stdin" {
		t.Errorf("Unexpected content %q", out)
	}
}

// namedPut registers a second put command reading from a fixed reader.
type namedPut struct {
	*PutCommand
}

func (*namedPut) Name() string {
	return "put-stdin"
}

func TestCommands_GetCloseError(t *testing.T) {
	registry, fs := setup(t)

	target := &failingCloser{}
	get := &GetCommand{Create: func(name string) (io.WriteCloser, error) {
		target.name = name
		return target, nil
	}}
	if err := registry.Register(&namedGet{GetCommand: get}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := fs.WriteFile(t.Context(), "/flush.txt", strings.NewReader("unflushed")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var out bytes.Buffer
	code, err := registry.Execute(t.Context(), fs, &out, "get-failing", "/flush.txt", "local.txt")
	if !errors.Is(err, errDiskFull) || code != cmd.ExitError {
		t.Fatalf("Expected close error with exit code %d, got %d (err=%v)", cmd.ExitError, code, err)
	}
	if target.name != "local.txt" || target.String() != "unflushed" {
		t.Errorf("Unexpected target %q with content %q", target.name, target.String())
	}
}

var errDiskFull = errors.New("disk full")

// failingCloser accepts writes and fails on Close like a file whose final flush fails.
type failingCloser struct {
	bytes.Buffer
	name string
}

func (*failingCloser) Close() error {
	return errDiskFull
}

type namedGet struct {
	*GetCommand
}

func (*namedGet) Name() string {
	return "get-failing"
}

func TestCommands_Errors(t *testing.T) {
	registry, fs := setup(t)

	tests := []struct {
		args []string
		code int
	}{
		{[]string{}, cmd.ExitUsage},
		{[]string{"format"}, cmd.ExitUsage},
		{[]string{"ls", "--unknown"}, cmd.ExitUsage},
		{[]string{"stat"}, cmd.ExitUsage},
		{[]string{"stat", "/missing"}, cmd.ExitError},
		{[]string{"get", "/missing"}, cmd.ExitError},
		{[]string{"get", "/"}, cmd.ExitError},
		{[]string{"put", "/no/such/local/file", "/x"}, cmd.ExitError},
	}

	run(t, registry, fs, "mkdir", "/")

	for _, tc := range tests {
		var out bytes.Buffer
		code, err := registry.Execute(t.Context(), fs, &out, tc.args...)
		if err == nil || code != tc.code {
			t.Errorf("%v: expected exit code %d with error, got %d (err=%v)", tc.args, tc.code, code, err)
		}
	}
}

func TestAncestors(t *testing.T) {
	got := ancestors("/a/b/c/")
	expected := []string{"/a", "/a/b", "/a/b/c"}

	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}
