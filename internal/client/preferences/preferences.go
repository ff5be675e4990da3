// Package preferences stores local display settings. They live next to the
// session records but are not part of the session.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/thyroscope/internal/client/repositories/metadata"
)

const KeyFontSize = "font_size"

type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"

	DefaultFontSize = FontMedium
)

var ErrUnknownFontSize = errors.New("unknown font size")

// ParseFontSize accepts small, medium or large.
func ParseFontSize(s string) (FontSize, error) {
	switch f := FontSize(s); f {
	case FontSmall, FontMedium, FontLarge:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFontSize, s)
	}
}

type Service struct {
	repo metadata.Repository
}

func NewService(repo metadata.Repository) *Service {
	return &Service{repo: repo}
}

// FontSize returns the stored size, or DefaultFontSize if none is stored or
// the stored value is not recognised.
func (s *Service) FontSize(ctx context.Context) (FontSize, error) {
	raw, err := s.repo.Get(ctx, KeyFontSize)
	if err != nil {
		return DefaultFontSize, err
	}
	f, err := ParseFontSize(string(raw))
	if err != nil {
		return DefaultFontSize, nil
	}
	return f, nil
}

func (s *Service) SetFontSize(ctx context.Context, f FontSize) error {
	if _, err := ParseFontSize(string(f)); err != nil {
		return err
	}
	return s.repo.Set(ctx, KeyFontSize, []byte(f))
}

// Reset removes the stored size so the default applies again.
func (s *Service) Reset(ctx context.Context) error {
	return s.repo.Delete(ctx, KeyFontSize)
}
