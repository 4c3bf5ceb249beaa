// cmd/memory-tui/main.go
//
// Plays the memory game in the terminal.
// Timings and the palette come from the same environment as the server (see internal/config);
// -size overrides BOARD_SIZE. Logs go to -log when given and are discarded otherwise, since the
// alt screen owns stdout.

package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/config"
	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/palette"
	"github.com/robalobadob/memory/internal/tui"
)

func main() {
	cfg := config.Load()
	size := flag.Int("size", cfg.BoardSize, "board side length (even, 2 to 64)")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()
	if *size < 2 || *size > game.MaxSize || *size%2 != 0 {
		fmt.Fprintf(os.Stderr, "-size must be even and between 2 and %d\n", game.MaxSize)
		os.Exit(2)
	}

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}

	if err := palette.Init(cfg.PaletteFile, cfg.PaletteOverflow); err != nil {
		fmt.Fprintln(os.Stderr, "palette:", err)
		os.Exit(1)
	}

	out := termenv.DefaultOutput()
	bg := termenv.BackgroundColor()
	out.SetBackgroundColor(out.Color("#1e1e1e"))

	m, err := tui.New(tui.Options{
		Size:            *size,
		MismatchDelay:   cfg.MismatchDelay,
		PreviewDuration: cfg.PreviewDuration,
		PreviewStagger:  cfg.PreviewStagger,
		Palette:         palette.Default(),
		Output:          out,
		Background:      bg,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Info().Int("size", *size).Msg("starting terminal game")
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		out.SetBackgroundColor(bg)
		log.Error().Err(err).Msg("program exited")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
