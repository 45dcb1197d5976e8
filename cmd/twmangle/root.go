package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "twmangle",
	Short: "Shorten utility class names across build artifacts",
	Long: `Rewrite every utility class name in your HTML, CSS, JavaScript and
component files to a short, collision-free name, consistently everywhere.
flex md:p-4 bg-red-500/50  ->  tw-a tw-b tw-c`,
	// Default behavior: run rewrite when no subcommand is given.
	// We must call loadConfig here because PreRunE of rewriteCmd
	// is not triggered when delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runRewrite(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "List every warning and map change")
	pf.Bool("quiet", false, "Suppress all output (exit code only)")
	pf.String("color", "auto", "Color output: auto|always|never")
	pf.String("output", "text", "Summary format: text|json")
	pf.String("config", ".twmangle.yaml", "Config file path")
	pf.String("log-level", "warn", "Log level: debug|info|warn|error")
	pf.String("log-format", "text", "Log format: text|json")

	addRewriteFlags(rootCmd)

	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
