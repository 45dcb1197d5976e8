package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .twmangle.yaml",
	Long:  `Create a commented .twmangle.yaml in the current directory listing every setting with its default.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = ".twmangle.yaml"
		}

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

const defaultConfig = `# twmangle configuration
# Flags override TWMANGLE_* environment variables, which override this file.

# Name generation
prefix: "tw-"              # "" for bare names
# alphabet: "abcdefghijklmnopqrstuvwxyz0123456789-_"
reserved: []               # names never generated; "/regexp/" allowed
preserve: []               # classes never renamed; "/regexp/" allowed

# Per-file filters (doublestar globs)
include: []
exclude: []

# Classes that may be renamed. Without either source, classes defined by the
# input stylesheets are used.
candidates:
  css: []
  file: ""

rewrite:
  paths:
    - "**/*.{html,htm,css,js,mjs,cjs,vue}"
  out-dir: dist            # "." rewrites in place
  workers: 0               # 0 = number of CPUs
  emit: splice             # splice | regenerate
  inline: false            # rewrite <style> and <script> inside HTML
  ignore-scoped: false
  ignore-marker: twm-ignore
  ignore-tag: twIgnore
  scope-marker: data-v-

map:
  out: ""                  # e.g. twmangle-map.json
  in: ""                   # previous map to report drift against
  format: ""               # json | yaml (default: from map.out extension)

watch:
  debounce: 200ms

log:
  level: warn              # debug | info | warn | error
  format: text             # text | json

verbose: false
quiet: false
color: auto                # auto | always | never
output: text               # text | json
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}
