package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/ui"
)

var (
	playHeadless bool

	playCmd = &cobra.Command{
		Use:   "play BOOK [CHAPTER]",
		Short: "Read a book aloud",
		Long: paragraph(fmt.Sprintf("\n%s a book from the library, resuming where you left off. "+
			"BOOK is an id, an id prefix or a title.", keyword("Play"))),
		Example: paragraph("recite play \"time machine\"\nrecite play 3f2a 4\nrecite play --engine piper --rate 1.2 3f2a"),
		Args:    cobra.RangeArgs(1, 2),
		RunE:    runPlay,
	}
)

func init() {
	playCmd.Flags().String("engine", "", "speech engine: mock or piper")
	playCmd.Flags().String("voice", "", "voice id")
	playCmd.Flags().Float64("rate", 0, "speech rate (0.1 to 4)")
	playCmd.Flags().Float64("pitch", 0, "speech pitch (0.5 to 2)")
	playCmd.Flags().BoolVar(&playHeadless, "headless", false, "print chunks instead of starting the player")

	_ = viper.BindPFlag("tts.engine", playCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("tts.voice", playCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("tts.rate", playCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("tts.pitch", playCmd.Flags().Lookup("pitch"))
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ordinal := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid chapter %q: want a number from 1", args[1])
		}
		ordinal = n
	}

	cfg, err := loadSpeechConfig()
	if err != nil {
		return err
	}

	lib, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close() //nolint:errcheck

	s, err := lib.Find(ctx, args[0])
	if err != nil {
		return err
	}
	book, err := lib.Get(ctx, s.ID)
	if err != nil {
		return err
	}
	if ordinal > len(book.Chapters) {
		return fmt.Errorf("%q has %d chapters", book.Title, len(book.Chapters))
	}
	progress, err := lib.Progress(ctx, s.ID)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	defer renderer.Close() //nolint:errcheck

	lang := book.Language
	if lang == "" {
		lang = cfg.Language
	}
	engine := tts.NewEngine(
		renderer,
		newSegmenter(lang, cfg.MaxChunkLength, renderer.Capabilities()),
		tts.WithLogger(log.Default().WithPrefix("engine")),
	)

	opts := ui.Options{
		Book:     book,
		Progress: progress,
		Chapter:  ordinal,
		Voice:    cfg.Voice,
		Rate:     cfg.Rate,
		Pitch:    cfg.Pitch,
		Store:    lib,
	}
	log.Info("playing book", "id", book.ID, "title", book.Title, "engine", cfg.Engine, "chapter", ordinal)

	if playHeadless || !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		return ui.RunHeadless(ctx, cmd.OutOrStdout(), engine, opts)
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	if _, err := ui.NewProgram(uiCfg, engine, opts).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}
