package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/recite/internal/library"
)

// titleWidth bounds titles in tables.
const titleWidth = 40

var (
	libraryCmd = &cobra.Command{
		Use:     "library",
		Aliases: []string{"ls", "list"},
		Short:   "List imported books",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer lib.Close() //nolint:errcheck

			books, err := lib.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("unable to list books: %w", err)
			}
			if len(books) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "The library is empty. Add a book with "+keyword("recite import")+".")
				return nil
			}
			printLibrary(cmd.OutOrStdout(), books)
			return nil
		},
	}

	libraryRmCmd = &cobra.Command{
		Use:     "rm BOOK",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a book and its progress",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lib, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close() //nolint:errcheck

			s, err := lib.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if err := lib.Delete(ctx, s.ID); err != nil {
				return fmt.Errorf("unable to remove book: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s\n", keyword(s.Title), faint("("+s.ID+")"))
			return nil
		},
	}
)

func init() {
	libraryCmd.AddCommand(libraryRmCmd)
}

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#4D4D4D"})).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func printLibrary(w io.Writer, books []library.Summary) {
	t := newTable("ID", "TITLE", "CHAPTERS", "CHARACTERS", "SIZE", "IMPORTED")
	for _, b := range books {
		t.Row(
			b.ID,
			runewidth.Truncate(b.Title, titleWidth, "…"),
			strconv.Itoa(b.Chapters),
			humanize.Comma(int64(b.Characters)),
			humanize.Bytes(uint64(b.Size)), //nolint:gosec
			humanize.Time(b.ImportedAt),
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}
