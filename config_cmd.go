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
)

const defaultConfig = `# log debug output to the log file
debug: false

# Speech
tts:
  # renderer: mock or piper
  engine: "mock"
  # voice id, empty for the renderer default (see: recite voices)
  voice: ""
  # speech rate (0.1 to 4.0) and pitch (0.5 to 2.0)
  rate: 1.0
  pitch: 1.0
  # language of the sentence rules
  language: "en"
  # longest chunk handed to the renderer, 0 for no limit
  max_chunk_length: 400

  piper:
    binary: "piper"
    # directory holding the .onnx voice models
    # data_dir: "~/.local/share/recite/voices"
    model: "en_US-lessac-medium"
    speaker_id: 0
    sample_rate: 22050
    noise_scale: 0.667
    noise_w: 0.8
    timeout: "30s"
    max_text_size: 1000

  # simulated renderer, no audio
  mock:
    chars_per_second: 10
    speedup: 1.0

# Book storage
library:
  storage:
    # local or s3
    adapter: "local"
    # bytes of books kept in memory, 0 disables
    cache_size: 0
    local:
      # base_path: "~/.local/share/recite/library"
    s3:
      # endpoint: "localhost:9000"
      region: "us-east-1"
      # bucket: "books"
      # prefix: "recite/"
      # access_key_id: ""
      # secret_access_key: ""
      use_ssl: true
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the recite config file",
	Long:    paragraph(fmt.Sprintf("\n%s the recite config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("recite config\nrecite config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Recite", configFile)
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
		return nil
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
