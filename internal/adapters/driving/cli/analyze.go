package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/adapters/driving/report"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
	"github.com/custodia-labs/vigil/internal/logger"
)

var (
	analyzeJSON   bool
	analyzeFailOn string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>...",
	Short: "Analyze source files for security issues",
	Long: `Analyzes each file chunk by chunk against the knowledge base and prints
one report per file. Directories are walked for files with the configured
watch extensions.

A file that cannot be analyzed is reported and does not stop the run.
With --fail-on, the command exits non-zero when any file's alert severity
reaches the given level (for example High), which is useful in CI.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output reports as JSON")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "", "exit non-zero at or above this severity")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var threshold domain.Severity
	if analyzeFailOn != "" {
		sev, ok := domain.ParseModelSeverity(analyzeFailOn)
		if !ok {
			return fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, analyzeFailOn)
		}
		threshold = sev
	}

	extensions := domain.DefaultAppSettings().Watch.Extensions
	if settings, err := currentSettings(); err == nil {
		extensions = settings.Watch.Extensions
	}
	files, err := collectFiles(args, extensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no source files found")
	}

	analysis, _, err := openAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	renderer := report.NewRenderer(cmd.OutOrStdout())
	var reports []*domain.FileReport
	alerted := false
	for _, path := range files {
		rep := analyzeOne(cmd.Context(), analysis, path)
		if rep == nil {
			continue
		}
		if threshold != "" && !rep.Failed() &&
			domain.SeverityRank(rep.AlertSeverity) >= domain.SeverityRank(threshold) {
			alerted = true
		}
		if analyzeJSON {
			reports = append(reports, rep)
			continue
		}
		if err := renderer.Render(rep); err != nil {
			return err
		}
	}

	if analyzeJSON {
		if err := renderer.JSON(reports); err != nil {
			return fmt.Errorf("failed to write reports: %w", err)
		}
	}
	if alerted {
		return fmt.Errorf("%w: %s", errAlert, threshold)
	}
	return nil
}

// analyzeOne returns the report for a file, or nil when none could be produced.
func analyzeOne(ctx context.Context, analysis driving.AnalysisService, path string) *domain.FileReport {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read %s: %v", path, err)
		return nil
	}

	rep, err := analysis.AnalyzeFile(ctx, path, string(data))
	if rep != nil {
		return rep
	}
	if err != nil {
		logger.Error("analyze %s: %v", path, err)
	}
	return nil
}

// collectFiles expands directories into the files with a matching extension.
// Explicit file arguments are always kept.
func collectFiles(args, extensions []string) ([]string, error) {
	want := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		want[strings.ToLower(ext)] = true
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != arg && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && want[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return files, nil
}
