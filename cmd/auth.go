package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/cloudmatch/internal/auth"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

// Login authenticates and prints the account with its drive usage.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	id, err := r.ensureLogin(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(id, true)
	}

	r.writePlainHeader("Logged in")
	r.writePlain("User:     %s (%d)\n", id.Nickname, id.UserID)
	r.writePlain("Storage:  %s / %s\n", shared.FormatCapacity(id.UsedBytes), shared.FormatCapacity(id.CapacityBytes))
	if snap := r.store.Snapshot(); snap.Loaded {
		r.writePlain("Songs:    %d\n", snap.Page.Total)
	}
	return nil
}

// ensureLogin uses --cookie when given, otherwise runs a QR login in the
// terminal and waits for it to resolve. See [shared.ResolveCookie] for the
// accepted cookie forms.
func (r *Runner) ensureLogin(ctx context.Context, cmd *cli.Command) (*models.Identity, error) {
	if id := r.session.Identity(); id != nil {
		return id, nil
	}

	if value := cmd.String("cookie"); strings.TrimSpace(value) != "" {
		cookie, err := shared.ResolveCookie(value)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("logging in with cookie")
		if _, err := r.session.LoginWithCookie(ctx, cookie); err != nil {
			return nil, fmt.Errorf("cookie login failed: %w", err)
		}
		return r.session.Identity(), nil
	}

	attempt, err := r.session.StartLogin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start QR login: %w", err)
	}

	if err := r.showTicket(attempt.Ticket()); err != nil {
		return nil, err
	}
	if _, err := r.waitForLogin(ctx, attempt); err != nil {
		return nil, err
	}
	return r.session.Identity(), nil
}

func (r *Runner) showTicket(t models.LoginTicket) error {
	qr, err := auth.RenderTerminalQR(t.URL)
	if err != nil {
		r.logger.Warn("failed to render QR code", "error", err)
		qr = ""
	}

	r.writePlain("Scan with the NetEase Cloud Music app to log in:\n\n")
	if qr != "" {
		r.writePlain("%s\n", qr)
	}
	r.writePlain("%s\n", t.URL)
	return r.writePlain("(expires %s)\n", shared.FormatTimestamp(t.ExpiresAt))
}

// waitForLogin reports ticket progress until the attempt resolves.
func (r *Runner) waitForLogin(ctx context.Context, a *auth.Attempt) (*models.Identity, error) {
	for {
		select {
		case t := <-a.Updates():
			switch t.State {
			case models.TicketScanned:
				r.writePlain("→ Scanned, confirm on your phone...\n")
			case models.TicketConfirmed:
				r.writePlain("→ Confirmed\n")
			}
		case res := <-a.Result():
			if res.Err != nil {
				return nil, fmt.Errorf("login failed: %w", res.Err)
			}
			return res.Identity, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
