package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/recite/chapter"
	"github.com/dgnsrekt/recite/internal/library"
	"github.com/dgnsrekt/recite/internal/source"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var errUnknownOutput = errors.New("unknown output format")

var (
	chaptersAll    bool
	chaptersOutput string

	chaptersCmd = &cobra.Command{
		Use:   "chapters BOOK|FILE",
		Short: "Show the chapters of a book or a document",
		Long: paragraph(fmt.Sprintf("\nList the %s detected in a library book or a document on disk. "+
			"Front and back matter is left out unless --all is given.", keyword("chapters"))),
		Args: cobra.ExactArgs(1),
		RunE: runChapters,
	}
)

func init() {
	chaptersCmd.Flags().BoolVarP(&chaptersAll, "all", "a", false, "include skipped front and back matter")
	chaptersCmd.Flags().StringVarP(&chaptersOutput, "output", "o", outputTable, "output format: table, json or yaml")
}

// chapterRow is one line of the chapters listing.
type chapterRow struct {
	Ordinal    int     `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
	Title      string  `json:"title" yaml:"title"`
	Characters int     `json:"characters" yaml:"characters"`
	Progress   float64 `json:"progress" yaml:"progress"`
	Skipped    string  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func runChapters(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	arg := args[0]

	var (
		b library.Book
		p library.Progress
	)
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		doc, err := source.LoadFile(arg)
		if err != nil {
			return fmt.Errorf("unable to read document: %w", err)
		}
		d := chapter.New(chapter.WithLogger(log.Default().WithPrefix("chapter")))
		b = library.NewBook(doc.Title, doc.Origin, viper.GetString("tts.language"), doc.Text, d.Split(doc.Text))
		b.Skipped = library.SkippedFrom(d.Candidates(doc.Text))
	} else {
		lib, err := openLibrary(ctx)
		if err != nil {
			return err
		}
		defer lib.Close() //nolint:errcheck

		s, err := lib.Find(ctx, arg)
		if err != nil {
			return err
		}
		if b, err = lib.Get(ctx, s.ID); err != nil {
			return err
		}
		if p, err = lib.Progress(ctx, s.ID); err != nil {
			return err
		}
	}

	return printChapters(cmd.OutOrStdout(), chapterRows(b, p, chaptersAll), chaptersOutput)
}

// chapterRows lists the chapters of b, followed by the skipped matter when
// all is set.
func chapterRows(b library.Book, p library.Progress, all bool) []chapterRow {
	rows := make([]chapterRow, 0, len(b.Chapters))
	for _, c := range b.Chapters {
		cp := p.Chapter(c.Ordinal)
		progress := cp.Fraction
		if cp.Finished {
			progress = 1
		}
		rows = append(rows, chapterRow{
			Ordinal:    c.Ordinal,
			Title:      c.Title,
			Characters: utf8.RuneCountInString(c.Body),
			Progress:   progress,
		})
	}
	if all {
		for _, s := range b.Skipped {
			rows = append(rows, chapterRow{
				Title:      s.Title,
				Characters: s.Characters,
				Skipped:    s.Reason,
			})
		}
	}
	return rows
}

func printChapters(w io.Writer, rows []chapterRow, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()

	case outputTable:
		t := newTable("#", "TITLE", "CHARACTERS", "PROGRESS")
		for _, r := range rows {
			ordinal, progress := strconv.Itoa(r.Ordinal), fmt.Sprintf("%3.0f%%", r.Progress*100)
			if r.Skipped != "" {
				ordinal, progress = "-", "skipped: "+r.Skipped
			}
			t.Row(ordinal, runewidth.Truncate(r.Title, titleWidth, "…"), strconv.Itoa(r.Characters), progress)
		}
		_, err := fmt.Fprintln(w, t.Render())
		return err

	default:
		return fmt.Errorf("%w: %s", errUnknownOutput, output)
	}
}
