package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yacobolo/twmangle"
	"github.com/yacobolo/twmangle/internal/discover"
	"github.com/yacobolo/twmangle/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Rewrite on every change to the input files",
	Long: `Run rewrite once, then again whenever an input file changes. Every run
starts a fresh build, so names can shift when the set of classes changes;
pass --map-in to see the drift.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runWatch,
}

func init() {
	addRewriteFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond, "Quiet period before a change triggers a rebuild")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr()).WithComponent("watch")

	run := func() {
		summary, err := execute(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error(err, "rebuild failed")
			return
		}
		if err := printSummary(cmd.OutOrStdout(), cfg, summary); err != nil {
			logger.Error(err, "printing summary")
		}
	}
	run()

	inputs, _, err := discover.New(".").Expand(cfg.Paths)
	if err != nil {
		return fmt.Errorf("expanding input paths: %w", err)
	}
	dirs := discover.Dirs(inputs)
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	delay := k.Duration("watch.debounce")
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	w, err := watch.New(delay, func(path string) bool {
		return twmangle.KindFromPath(path) != twmangle.KindUnknown && !insideDir(path, cfg.OutDir)
	}, logger)
	if err != nil {
		return err
	}
	if err := w.Add(dirs...); err != nil {
		return err
	}

	logger.Info("watching for changes", "dirs", len(dirs))
	return w.Run(cmd.Context(), func(paths []string) {
		logger.Info("change detected", "files", paths)
		run()
	})
}
