package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices of the configured speech engine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadSpeechConfig()
		if err != nil {
			return err
		}
		renderer, err := newRenderer(cfg)
		if err != nil {
			return err
		}
		defer renderer.Close() //nolint:errcheck

		voices := renderer.Voices()
		if len(voices) == 0 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "The %s engine has no voices.\n", keyword(cfg.Engine))
			return nil
		}

		t := newTable("ID", "NAME", "LANGUAGE")
		for _, v := range voices {
			id := v.ID
			if id == cfg.Voice {
				id += " *"
			}
			t.Row(id, v.Name, v.Language)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}
