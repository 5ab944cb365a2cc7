package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) string { return "" }

// inTempDir runs the test in an empty directory with no user config.
func inTempDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runArgs(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut, noEnv)
	return out.String(), errOut.String(), err
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runArgs(t, "--version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "beam version") {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestRunHelp(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}} {
		stdout, _, err := runArgs(t, args...)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", args, err)
		}
		for _, want := range []string{"beam - HTML templates compiled to Go", "generate", "--config"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("%v: expected %q in help, got %q", args, want, stdout)
			}
		}
	}
}

func TestRunBadInvocations(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "no command given"},
		{[]string{"--invalid-flag"}, "flag provided but not defined"},
		{[]string{"frobnicate"}, `unknown command "frobnicate"`},
		{[]string{"render"}, "render needs exactly one file"},
		{[]string{"inspect", "a.beam", "b.beam"}, "inspect needs exactly one file"},
		{[]string{"repl", "extra"}, "repl takes no arguments"},
	}
	inTempDir(t, nil)
	for _, tt := range tests {
		_, _, err := runArgs(t, tt.args...)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%v: expected error containing %q, got %v", tt.args, tt.want, err)
		}
	}
}

func TestRunMissingConfig(t *testing.T) {
	inTempDir(t, nil)
	_, _, err := runArgs(t, "--config", "/nonexistent/beam.yaml", "check")
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %v", err)
	}
}

const helloFile = `package views

template Hello(name string) {
  <p class="hello">{"Hello, " + name}</p>
}
`

func TestGenerate(t *testing.T) {
	dir := inTempDir(t, map[string]string{
		"views/hello.beam": helloFile,
		"views/plain.beam": `<p>"plain"</p>`,
	})

	stdout, stderr, err := runArgs(t, "generate", "--package", "views")
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, stderr)
	}
	for _, name := range []string{"hello.beam.go", "plain.beam.go"} {
		out := filepath.Join(dir, "views", name)
		if !strings.Contains(stdout, "wrote "+out) {
			t.Errorf("expected %s to be reported, got %q", out, stdout)
		}
		src, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		if !strings.HasPrefix(string(src), "// Code generated by beam") {
			t.Errorf("%s: missing generated header", name)
		}
	}
}

func TestGenerateReportsFailures(t *testing.T) {
	inTempDir(t, map[string]string{
		"ok.beam":  helloFile,
		"bad.beam": `<p>"no package"</p>`,
	})

	stdout, stderr, err := runArgs(t, "generate")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(stdout, "ok.beam.go") {
		t.Errorf("expected ok.beam.go to be written, got %q", stdout)
	}
	if !strings.Contains(stderr, "Generate error") {
		t.Errorf("expected a generate diagnostic, got %q", stderr)
	}
}

func TestGenerateUsesConfig(t *testing.T) {
	dir := inTempDir(t, map[string]string{
		"beam.yaml":            "templates:\n  root: src\n  exclude: \"**/_*.beam\"\ngenerate:\n  package: site\n  suffix: _beam.go\n",
		"src/page.beam":        `<p>"page"</p>`,
		"src/_partial.beam":    `<p>"skipped"</p>`,
		"elsewhere/other.beam": `<p>"outside root"</p>`,
	})

	stdout, stderr, err := runArgs(t, "generate")
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, stderr)
	}
	want := "wrote " + filepath.Join(dir, "src", "page.beam_beam.go") + "\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
	src, err := os.ReadFile(filepath.Join(dir, "src", "page.beam_beam.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(src), "package site") {
		t.Errorf("expected package site, got:\n%s", src)
	}
}

func TestRender(t *testing.T) {
	inTempDir(t, map[string]string{
		"hello.beam": helloFile,
		"data.yaml":  "name: <Ada>\n",
		"page.beam":  `<ul><li>{title}</li><li>{count}</li></ul>`,
		"page.jsonc": "{\n  // comment\n  \"title\": \"Home\",\n  \"count\": 3,\n}\n",
	})

	stdout, stderr, err := runArgs(t, "render", "hello.beam", "--data", "data.yaml")
	if err != nil {
		t.Fatalf("render failed: %v\n%s", err, stderr)
	}
	if stdout != "<p class=\"hello\">Hello, &lt;Ada&gt;</p>\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	stdout, stderr, err = runArgs(t, "render", "--data", "page.jsonc", "page.beam")
	if err != nil {
		t.Fatalf("render failed: %v\n%s", err, stderr)
	}
	if stdout != "<ul><li>Home</li><li>3</li></ul>\n" {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestRenderErrors(t *testing.T) {
	inTempDir(t, map[string]string{
		"hello.beam": helloFile,
		"two.beam":   "template A() {\n<p/>\n}\n\ntemplate B() {\n<br/>\n}\n",
	})

	_, stderr, err := runArgs(t, "render", "hello.beam")
	if err == nil || !strings.Contains(stderr, "missing value for parameter 'name'") {
		t.Errorf("expected missing parameter diagnostic, got %v\n%s", err, stderr)
	}

	_, _, err = runArgs(t, "render", "two.beam")
	if err == nil || !strings.Contains(err.Error(), "choose one with --template") {
		t.Errorf("expected ambiguity error, got %v", err)
	}

	stdout, _, err := runArgs(t, "render", "--template", "B", "two.beam")
	if err != nil || stdout != "<br/>\n" {
		t.Errorf("expected <br/>, got %q (%v)", stdout, err)
	}

	_, _, err = runArgs(t, "render", "--template", "C", "two.beam")
	if err == nil || !strings.Contains(err.Error(), `no template "C"`) {
		t.Errorf("expected unknown template error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	inTempDir(t, map[string]string{
		"good.beam": helloFile,
		"bad.beam":  "<div>\n  <p></div>\n",
	})

	stdout, stderr, err := runArgs(t, "check", "good.beam")
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, stderr)
	}
	if stdout != "ok good.beam (1 templates)\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	_, stderr, err = runArgs(t, "check")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files have errors") {
		t.Errorf("expected one failure, got %v", err)
	}
	if !strings.Contains(stderr, "Parse error") || !strings.Contains(stderr, "bad.beam") {
		t.Errorf("expected positioned parse error, got %q", stderr)
	}
}

func TestInspect(t *testing.T) {
	inTempDir(t, map[string]string{"hello.beam": helloFile})

	stdout, stderr, err := runArgs(t, "inspect", "hello.beam")
	if err != nil {
		t.Fatalf("inspect failed: %v\n%s", err, stderr)
	}
	for _, want := range []string{"== Hello", "piece 0:", "slot  0: children"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}

	stdout, stderr, err = runArgs(t, "inspect", "--vnode", "hello.beam")
	if err != nil {
		t.Fatalf("inspect --vnode failed: %v\n%s", err, stderr)
	}
	for _, want := range []string{"== Hello", `"tag": "p"`, `"expr": "\"Hello, \" + name"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestParseArgs(t *testing.T) {
	fs := newFlagSet("test", &bytes.Buffer{})
	data := fs.String("data", "", "")
	vnode := fs.Bool("vnode", false, "")

	got, err := parseArgs(fs, []string{"a.beam", "--data", "x.yaml", "b.beam", "--vnode"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "a.beam,b.beam" || *data != "x.yaml" || !*vnode {
		t.Errorf("got %v data=%q vnode=%v", got, *data, *vnode)
	}
}
