package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/preferences"
)

func (a *App) Settings(ctx context.Context) error {
	if !a.open(ctx, guard.ViewSettings) {
		return nil
	}
	size, err := a.prefs.FontSize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Font size: %s\n", size)
	return nil
}

func (a *App) SetFont(ctx context.Context, size string) error {
	if !a.open(ctx, guard.ViewSettings) {
		return nil
	}
	f, err := preferences.ParseFontSize(size)
	if err != nil {
		fmt.Fprintln(a.out, "Font size must be small, medium or large.")
		return nil
	}
	if err := a.prefs.SetFontSize(ctx, f); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Settings saved.")
	return nil
}

func (a *App) ResetFont(ctx context.Context) error {
	if !a.open(ctx, guard.ViewSettings) {
		return nil
	}
	if err := a.prefs.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Font size reset to %s.\n", preferences.DefaultFontSize)
	return nil
}
