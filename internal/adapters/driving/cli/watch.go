package cli

import (
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vigil/internal/adapters/driving/report"
	"github.com/custodia-labs/vigil/internal/adapters/driving/watcher"
	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Analyze files as they change",
	Long: `Watches dir (default: watch.dir from the config file, else the current
directory) and analyzes every created or modified file with a configured
extension. Bursts of writes are debounced per file; a newer change cancels
the analysis still running for the same file.

Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	settings, err := currentSettings()
	if err != nil {
		return err
	}

	dir := settings.Watch.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	analysis, kb, err := openAnalysis(cmd.Context())
	if err != nil {
		return err
	}
	if kb.Generation() == 0 {
		logger.Warn("knowledge base is empty; run 'vigil kb rebuild' for guidance-backed findings")
	}

	// Reports arrive from concurrent analyses.
	var mu sync.Mutex
	renderer := report.NewRenderer(cmd.OutOrStdout())
	handler := func(rep *domain.FileReport) {
		mu.Lock()
		defer mu.Unlock()
		if err := renderer.Render(rep); err != nil {
			logger.Warn("render %s: %v", rep.FilePath, err)
		}
	}

	w := watcher.New(dir, analysis, watcher.Options{
		Extensions: settings.Watch.Extensions,
		Debounce:   time.Duration(settings.Watch.DebounceMS) * time.Millisecond,
	}, handler)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-w.Ready():
			mu.Lock()
			cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)
			mu.Unlock()
		case <-done:
		}
	}()

	return w.Run(cmd.Context())
}
