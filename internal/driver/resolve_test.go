package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tpcheck/internal/diag"
	"tpcheck/internal/observ"
	"tpcheck/internal/tparams"
)

const shapesTOML = `
[[type]]
name = "Shape"

[[type]]
name = "IDrawable"
kind = "interface"

[[type]]
name = "Canvas"
  [[type.param]]
  name = "T"
  constraints = ["Shape", "IDrawable"]
  [[type.method]]
  name = "Draw"
    [[type.method.param]]
    name = "U"
    constraints = ["T", "new()"]
`

const cycleYAML = `
methods:
  - name: M
    params:
      - name: A
        constraints: ["B"]
      - name: B
        constraints: ["A"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func findParam(t *testing.T, r FileReport, decl, name string) ParamFacts {
	t.Helper()
	for _, p := range r.Params {
		if p.Decl == decl && p.Name == name {
			return p
		}
	}
	t.Fatalf("%s.%s not in report of %s", decl, name, r.Path)
	return ParamFacts{}
}

func hasCode(ds []diag.Diagnostic, code diag.Code) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestResolveCollectsFacts(t *testing.T) {
	dir := t.TempDir()
	shapes := writeFile(t, dir, "shapes.toml", shapesTOML)
	cycle := writeFile(t, dir, "cycle.yaml", cycleYAML)

	timer := observ.NewTimer()
	res, err := Resolve(context.Background(), []string{shapes, cycle}, Options{Jobs: 2, Timer: timer})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Files) != 2 || res.Files[0].Path != shapes || res.Files[1].Path != cycle {
		t.Fatalf("reports must follow input order: %+v", res.Files)
	}

	u := findParam(t, res.Files[0], "Canvas.Draw", "U")
	if u.EffectiveBase != "Shape" || !u.IsReference || len(u.AllInterfaces) != 1 {
		t.Fatalf("U facts: %+v", u)
	}
	if len(u.Flags) != 1 || u.Flags[0] != "new()" {
		t.Fatalf("U flags: %v", u.Flags)
	}
	if len(res.Files[0].Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", res.Files[0].Diagnostics)
	}

	if !hasCode(res.Files[1].Diagnostics, diag.TypeParamCircularConstraint) {
		t.Fatalf("cycle not reported: %v", res.Files[1].Diagnostics)
	}
	a := findParam(t, res.Files[1], "M", "A")
	if a.EffectiveBase != "object" || len(a.Constraints) != 0 {
		t.Fatalf("cyclic edge must be dropped: %+v", a)
	}
	if !res.HasErrors() {
		t.Fatalf("cycle is an error")
	}
	if got := len(timer.Report().Phases); got != 3 {
		t.Fatalf("expected load, bind and resolve phases, got %d", got)
	}
}

func TestResolveReportsInputProblems(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "[[type]]\nname = \n")
	invalid := writeFile(t, dir, "invalid.toml", "[[type]]\nname = \"1x\"\nkind = \"record\"\n")
	unknown := writeFile(t, dir, "decls.json", "{}")
	missing := filepath.Join(dir, "missing.toml")

	res, err := Resolve(context.Background(), []string{bad, invalid, unknown, missing}, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []diag.Code{diag.DeclDecodeFailed, diag.DeclValidation, diag.DeclUnknownFormat, diag.IOLoadFileError}
	for i, code := range want {
		if !hasCode(res.Files[i].Diagnostics, code) {
			t.Fatalf("%s: expected %s, got %v", res.Files[i].Path, code, res.Files[i].Diagnostics)
		}
		if len(res.Files[i].Params) != 0 {
			t.Fatalf("%s: no facts expected", res.Files[i].Path)
		}
	}
}

func TestResolveUsesCache(t *testing.T) {
	dir := t.TempDir()
	shapes := writeFile(t, dir, "shapes.toml", shapesTOML)
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	first, err := Resolve(context.Background(), []string{shapes}, Options{Cache: cache})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Files[0].Cached {
		t.Fatalf("first run cannot hit the cache")
	}
	second, err := Resolve(context.Background(), []string{shapes}, Options{Cache: cache})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !second.Files[0].Cached {
		t.Fatalf("second run must hit the cache")
	}
	if len(second.Files[0].Params) != len(first.Files[0].Params) {
		t.Fatalf("cached report differs")
	}

	other, err := Resolve(context.Background(), []string{shapes}, Options{Cache: cache, Exclusion: tparams.ExcludeInterface})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if other.Files[0].Cached {
		t.Fatalf("exclusion set is part of the key")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := cache.Get(MakeCacheKey([]byte(shapesTOML), "x", tparams.DefaultExclusion)); ok {
		t.Fatalf("cache must be empty")
	}
}

func TestResolveHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	shapes := writeFile(t, dir, "shapes.toml", shapesTOML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, []string{shapes}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCacheKeyDependsOnInputs(t *testing.T) {
	base := MakeCacheKey([]byte("a"), "1", tparams.DefaultExclusion)
	if base != MakeCacheKey([]byte("a"), "1", tparams.DefaultExclusion) {
		t.Fatalf("key must be deterministic")
	}
	if base == MakeCacheKey([]byte("b"), "1", tparams.DefaultExclusion) ||
		base == MakeCacheKey([]byte("a"), "2", tparams.DefaultExclusion) ||
		base == MakeCacheKey([]byte("a"), "1", tparams.ExcludeError) {
		t.Fatalf("key must change with content, version and exclusion")
	}
}
