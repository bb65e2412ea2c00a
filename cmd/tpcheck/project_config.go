package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const projectFileName = "tpcheck.toml"

const noProjectMessage = "no input files and no tpcheck.toml found\nplease name declaration files explicitly, e.g.:\n  tpcheck resolve decls.toml"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Check checkConfig `toml:"check"`
}

type checkConfig struct {
	Files     []string `toml:"files"`
	Jobs      int      `toml:"jobs"`
	Exclusion []string `toml:"exclusion"`
}

func findProjectFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, projectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	path, ok, err := findProjectFile(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("check") {
		return projectConfig{}, fmt.Errorf("%s: missing [check]", path)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return projectConfig{}, fmt.Errorf("%s: unknown key %s", path, keys[0])
	}
	if cfg.Check.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [check].jobs must not be negative", path)
	}
	for _, f := range cfg.Check.Files {
		if strings.TrimSpace(f) == "" {
			return projectConfig{}, fmt.Errorf("%s: [check].files contains an empty entry", path)
		}
	}
	return cfg, nil
}

// files resolves [check].files relative to the manifest directory.
func (m *projectManifest) files() []string {
	out := make([]string, 0, len(m.Config.Check.Files))
	for _, f := range m.Config.Check.Files {
		if filepath.IsAbs(f) {
			out = append(out, f)
			continue
		}
		out = append(out, filepath.Join(m.Root, filepath.FromSlash(f)))
	}
	return out
}
