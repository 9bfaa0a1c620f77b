package sms

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

// ConsoleSender writes login codes to the log instead of sending them.
type ConsoleSender struct {
	Logger *slog.Logger
}

func (s *ConsoleSender) Name() string { return ProviderConsole }

func (s *ConsoleSender) SendLoginCode(ctx context.Context, phone, code string) error {
	l := s.Logger
	if l == nil {
		l = slogx.FromContext(ctx)
	}
	l.InfoContext(ctx, "sms login code", "provider", ProviderConsole, "phone", slogx.MaskPhone(phone), "code", code)
	return nil
}
