package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFindProjectFileWalksUp(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, projectFileName), "[check]\nfiles = [\"decls/a.toml\"]\njobs = 2\n")
	nested := filepath.Join(root, "decls", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, ok, err := loadProjectManifest(nested)
	if err != nil || !ok {
		t.Fatalf("expected manifest, got ok=%v err=%v", ok, err)
	}
	if m.Config.Check.Jobs != 2 {
		t.Fatalf("jobs = %d", m.Config.Check.Jobs)
	}
	want := []string{filepath.Join(root, "decls", "a.toml")}
	if got := m.files(); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
}

func TestProjectConfigValidation(t *testing.T) {
	cases := map[string]string{
		"missing section": "jobs = 1\n",
		"negative jobs":   "[check]\njobs = -1\n",
		"unknown key":     "[check]\nfile = [\"a.toml\"]\n",
		"empty entry":     "[check]\nfiles = [\" \"]\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), projectFileName)
		writeTestFile(t, path, content)
		if _, err := loadProjectConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestCollectInputFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "b.yaml"), "")
	writeTestFile(t, filepath.Join(dir, "sub", "a.toml"), "")
	writeTestFile(t, filepath.Join(dir, "notes.txt"), "")
	writeTestFile(t, filepath.Join(dir, projectFileName), "[check]\n")
	single := filepath.Join(dir, "sub", "a.toml")

	got, err := collectInputFiles([]string{single, dir, filepath.Join(dir, "missing.toml")})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{
		single,
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "a.toml"),
		filepath.Join(dir, "missing.toml"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestResolveCommandWritesJSON(t *testing.T) {
	dir := t.TempDir()
	decls := filepath.Join(dir, "decls.toml")
	writeTestFile(t, decls, "[[method]]\nname = \"M\"\n  [[method.param]]\n  name = \"T\"\n  constraints = [\"class\"]\n")
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	var out strings.Builder
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"resolve", "--format", "json", "--color", "off", decls})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), `"is_reference": true`) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
