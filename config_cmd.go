package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pptlabs/pastelink/internal/config"
)

const defaultConfig = `# shape correlation
match:
  # tolerance when comparing positions, in points
  epsilon: 0.001

# rename protocol
rename:
  # tag copied originals so they can be told apart after a paste
  mark_originals: true
  # prefix for temporary names (default: a random uuid)
  # placeholder_prefix: "pastelink-"

# slide bundle propagation: copy or move
propagate:
  mode: "copy"

# where slide bundles live: memory or disk
store:
  backend: "memory"
  # dir: "~/.local/share/pastelink/bundles"
  # zstd level for clips written to disk
  compression_level: 3
  memory_capacity: 67108864
  disk_capacity: 536870912

# how many contained failures are logged per second
diagnostics:
  rate: 1
  burst: 5
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the pastelink config file",
	Long:    paragraph(fmt.Sprintf("\n%s the pastelink config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("pastelink config\npastelink config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Pastelink", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return checkConfigFile(configFile)
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

// checkConfigFile reads path back and reports settings that would be rejected.
func checkConfigFile(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}
	if _, err := config.LoadFromViper(); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}
