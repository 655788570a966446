package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/cloudmatch/internal/shared"
	"github.com/desertthunder/cloudmatch/internal/ui"
)

// TUI launches the interactive library browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if value := cmd.String("cookie"); value != "" {
		cookie, err := shared.ResolveCookie(value)
		if err != nil {
			return err
		}
		if _, err := r.session.LoginWithCookie(ctx, cookie); err != nil {
			return fmt.Errorf("cookie login failed: %w", err)
		}
	}

	model := ui.NewModel(ctx, ui.Deps{
		Session: r.session,
		Store:   r.store,
		Matcher: r.matcher,
		Log:     r.history,
		Images:  r.images,
		Logger:  r.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
