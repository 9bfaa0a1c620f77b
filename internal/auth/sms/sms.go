// Package sms delivers one-time login codes to phone numbers.
package sms

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Provider names accepted by NewSender.
const (
	ProviderConsole = "console"
	ProviderAliyun  = "aliyun"
)

// Sender delivers a login code to a phone number.
type Sender interface {
	Name() string
	SendLoginCode(ctx context.Context, phone, code string) error
}

// Config selects and configures the SMS provider.
type Config struct {
	Provider string

	AliyunAccessKeyID       string
	AliyunAccessKeySecret   string
	AliyunSignName          string
	AliyunTemplateCodeLogin string
	AliyunRegionID          string
	AliyunTemplateCodeKey   string
	AliyunEndpoint          string

	Timeout time.Duration
}

func (c Config) aliyunComplete() bool {
	return c.AliyunAccessKeyID != "" &&
		c.AliyunAccessKeySecret != "" &&
		c.AliyunSignName != "" &&
		c.AliyunTemplateCodeLogin != ""
}

// NewSender returns the sender named by cfg.Provider. An unknown provider or
// an incomplete aliyun configuration falls back to the console sender.
func NewSender(cfg Config, logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderConsole:
		return &ConsoleSender{Logger: logger}
	case ProviderAliyun:
		if !cfg.aliyunComplete() {
			logger.Error("aliyun sms configuration incomplete, falling back to console provider")
			return &ConsoleSender{Logger: logger}
		}
		return NewAliyunSender(cfg)
	default:
		logger.Error("unknown sms provider, falling back to console provider", "provider", cfg.Provider)
		return &ConsoleSender{Logger: logger}
	}
}
