package ui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// ErrNotTerminal is returned when stdout is not a terminal
var ErrNotTerminal = errors.New("not running in a terminal")

// Run starts the interactive explorer and blocks until the user quits or
// ctx is cancelled
func Run(ctx context.Context, opts Options) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("%w, use probe for scripted access", ErrNotTerminal)
	}

	p := tea.NewProgram(
		New(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
