package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/recite/chapter"
	"github.com/dgnsrekt/recite/internal/library"
	"github.com/dgnsrekt/recite/internal/source"
)

var (
	importTitle     string
	importClipboard bool
	importWatch     bool

	importCmd = &cobra.Command{
		Use:   "import [SOURCE]",
		Short: "Import a document into the library",
		Long: paragraph(fmt.Sprintf("\n%s a text or markdown document from a file, a URL, stdin or the clipboard. "+
			"The document is split into chapters and stored in the library.", keyword("Import"))),
		Example: paragraph("recite import book.txt\nrecite import https://example.com/book.md\n" +
			"cat book.txt | recite import\nrecite import --clipboard --title Notes\nrecite import --watch draft.md"),
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}
)

func init() {
	importCmd.Flags().StringVarP(&importTitle, "title", "T", "", "book title (default from the file name)")
	importCmd.Flags().BoolVarP(&importClipboard, "clipboard", "c", false, "import the clipboard contents")
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "re-import the file whenever it changes")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	arg, err := importSource(args)
	if err != nil {
		return err
	}
	if importWatch && (arg == "" || arg == "-" || strings.Contains(arg, "://")) {
		return errors.New("--watch needs a file")
	}

	lib, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close() //nolint:errcheck

	load := func() (source.Document, error) {
		if importClipboard {
			return source.FromClipboard()
		}
		return source.Load(ctx, arg)
	}

	doc, err := load()
	if err != nil {
		return fmt.Errorf("unable to read document: %w", err)
	}
	s, err := importDocument(ctx, lib, doc, importTitle, viper.GetString("tts.language"))
	if err != nil {
		return err
	}
	printImported(cmd.OutOrStdout(), s)

	if !importWatch {
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), faint("Watching "+arg+" for changes. Press ctrl+c to stop."))
	current := s.ID
	err = source.Watch(ctx, arg, func() {
		doc, err := load()
		if err != nil {
			log.Warn("unable to reload document", "path", arg, "error", err)
			return
		}
		s, err := importDocument(ctx, lib, doc, importTitle, viper.GetString("tts.language"))
		if err != nil {
			log.Error("unable to import document", "path", arg, "error", err)
			return
		}
		if s.ID != current {
			// The text changed, so the previous version is superseded.
			if err := lib.Delete(ctx, current); err != nil && !errors.Is(err, library.ErrBookNotFound) {
				log.Warn("unable to remove previous version", "id", current, "error", err)
			}
			current = s.ID
		}
		printImported(cmd.OutOrStdout(), s)
	})
	if err != nil {
		return fmt.Errorf("unable to watch file: %w", err)
	}
	return nil
}

// importSource picks the document to read from the arguments, falling back
// to stdin when it is a pipe.
func importSource(args []string) (string, error) {
	if importClipboard {
		if len(args) > 0 {
			return "", errors.New("--clipboard takes no source argument")
		}
		return "", nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	if yes, err := stdinIsPipe(); err != nil {
		return "", err
	} else if yes {
		return "-", nil
	}
	return "", errors.New("missing source: pass a file, a URL, - for stdin or --clipboard")
}

// importDocument splits doc into chapters and saves it as a book.
func importDocument(ctx context.Context, lib *library.Library, doc source.Document, title, lang string) (library.Summary, error) {
	if title == "" {
		title = doc.Title
	}

	d := chapter.New(chapter.WithLogger(log.Default().WithPrefix("chapter")))
	b := library.NewBook(title, doc.Origin, lang, doc.Text, d.Split(doc.Text))
	b.Skipped = library.SkippedFrom(d.Candidates(doc.Text))

	log.Info("importing book", "id", b.ID, "title", b.Title, "origin", doc.Origin,
		"chapters", len(b.Chapters), "skipped", len(b.Skipped))
	s, err := lib.Save(ctx, b)
	if err != nil {
		return s, fmt.Errorf("unable to save book: %w", err)
	}
	return s, nil
}

func printImported(w io.Writer, s library.Summary) {
	_, _ = fmt.Fprintf(w, "Imported %s %s: %d chapters, %s characters, %s stored\n",
		keyword(s.Title),
		faint("("+s.ID+")"),
		s.Chapters,
		humanize.Comma(int64(s.Characters)),
		humanize.Bytes(uint64(s.Size)), //nolint:gosec
	)
}
