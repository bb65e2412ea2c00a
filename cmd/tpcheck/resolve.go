package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tpcheck/internal/driver"
	"tpcheck/internal/observ"
	"tpcheck/internal/report"
	"tpcheck/internal/tparams"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] [file|directory...]",
	Short: "Resolve type-parameter constraints in declaration files",
	Long: `Resolve every generic declaration in the given TOML or YAML files and print
the effective facts of each type parameter. Directories are searched for
*.toml, *.yaml and *.yml files. Without arguments the files listed in the
nearest tpcheck.toml are used.`,
	RunE: runResolve,
}

var errResolveFailed = errors.New("resolution reported errors")

func init() {
	resolveCmd.Flags().StringSlice("exclusion", nil, "kinds that do not imply a reference type (interface,error,object,valuetype,enum,array)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	root := cmd.Root().PersistentFlags()
	formatStr, err := root.GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := report.ParseFormat(strings.ToLower(formatStr))
	if err != nil {
		return err
	}
	maxDiagnostics, err := root.GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	jobs, err := root.GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	showTimings, err := root.GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	noCache, err := root.GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	colorFlag, err := root.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))

	var exclusionNames []string
	paths := args
	if len(paths) == 0 {
		manifest, ok, err := loadProjectManifest(".")
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(noProjectMessage)
		}
		paths = manifest.files()
		if len(paths) == 0 {
			return fmt.Errorf("%s: [check].files is empty", manifest.Path)
		}
		if !root.Changed("jobs") && manifest.Config.Check.Jobs > 0 {
			jobs = manifest.Config.Check.Jobs
		}
		exclusionNames = manifest.Config.Check.Exclusion
	}
	if cmd.Flags().Changed("exclusion") {
		if exclusionNames, err = cmd.Flags().GetStringSlice("exclusion"); err != nil {
			return fmt.Errorf("failed to get exclusion flag: %w", err)
		}
	}
	exclusion := tparams.DefaultExclusion
	if len(exclusionNames) > 0 {
		if exclusion, err = tparams.ParseExclusion(exclusionNames); err != nil {
			return err
		}
	}

	files, err := collectInputFiles(paths)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	var cache *driver.DiskCache
	if !noCache {
		if cache, err = driver.OpenDiskCache("tpcheck"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
			cache = nil
		}
	}

	timer := observ.NewTimer()
	res, err := driver.Resolve(cmd.Context(), files, driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Exclusion:      exclusion,
		Cache:          cache,
		Timer:          timer,
	})
	if err != nil {
		return err
	}

	err = timer.Track("report", func() (string, error) {
		return format.String(), report.Write(cmd.OutOrStdout(), format, res.Files, report.Options{
			Color:          useColor,
			MaxDiagnostics: maxDiagnostics,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if showTimings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if res.HasErrors() {
		return errResolveFailed
	}
	return nil
}

// collectInputFiles expands directories into their declaration files.
// Explicit files are kept as given, in order; directory contents are sorted.
func collectInputFiles(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// reported as a load diagnostic
				out = append(out, p)
				continue
			}
			return nil, fmt.Errorf("failed to stat %q: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		found, err := listDeclFiles(p)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

func listDeclFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == projectFileName {
			return nil
		}
		switch filepath.Ext(path) {
		case ".toml", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
