package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/recite/internal/source"
	"github.com/dgnsrekt/recite/tts"
)

var (
	segmentOutput string

	segmentCmd = &cobra.Command{
		Use:   "segment [FILE|-]",
		Short: "Show how a document is cut into speech chunks",
		Long: paragraph(fmt.Sprintf("\nPrint the %s a document is spoken in, with the pause that follows each one.",
			keyword("speech chunks"))),
		Example: paragraph("recite segment chapter.txt\necho 'Hello, world. Bye.' | recite segment -o json"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := "-"
			if len(args) == 1 {
				arg = args[0]
			}
			doc, err := source.Load(cmd.Context(), arg)
			if err != nil {
				return fmt.Errorf("unable to read document: %w", err)
			}

			cfg, err := loadSpeechConfig()
			if err != nil {
				return err
			}
			chunks := newSegmenter(cfg.Language, cfg.MaxChunkLength, tts.Capabilities{}).Segment(doc.Text)
			return printChunks(cmd.OutOrStdout(), chunks, segmentOutput)
		},
	}
)

func init() {
	segmentCmd.Flags().StringVarP(&segmentOutput, "output", "o", outputTable, "output format: table, json or yaml")
}

func printChunks(w io.Writer, chunks []tts.SpeechChunk, output string) error {
	switch output {
	case outputJSON:
		if chunks == nil {
			chunks = []tts.SpeechChunk{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(chunks); err != nil {
			return err
		}
		return enc.Close()

	case outputTable:
		t := newTable("#", "TYPE", "PAUSE", "TEXT")
		for i, c := range chunks {
			t.Row(strconv.Itoa(i+1), c.Type.String(), fmt.Sprintf("%.2fs", c.PauseDurationSeconds), c.Text)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err

	default:
		return fmt.Errorf("%w: %s", errUnknownOutput, output)
	}
}
