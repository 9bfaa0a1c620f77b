package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	ProviderWeChat = "wechat"

	DefaultWeChatScope    = "snsapi_login"
	DefaultWeChatAuthURL  = "https://open.weixin.qq.com/connect/qrconnect"
	DefaultWeChatTokenURL = "https://api.weixin.qq.com/sns/oauth2/access_token"

	wechatFragment         = "#wechat_redirect"
	wechatMaxResponseBytes = 64 << 10
)

// WeChatConfig configures the WeChat website-app login.
type WeChatConfig struct {
	AppID       string
	AppSecret   string
	RedirectURI string
	Scope       string

	// Overridable for tests.
	AuthURL  string
	TokenURL string

	Timeout time.Duration
}

// WeChat is the QR-connect login of the WeChat Open Platform.
type WeChat struct {
	cfg    WeChatConfig
	client *http.Client
}

func NewWeChat(cfg WeChatConfig) *WeChat {
	if cfg.Scope == "" {
		cfg.Scope = DefaultWeChatScope
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultWeChatAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultWeChatTokenURL
	}
	return &WeChat{cfg: cfg, client: newHTTPClient(cfg.Timeout)}
}

func (w *WeChat) Name() string { return ProviderWeChat }

func (w *WeChat) AuthCodeURL(state string) (string, error) {
	if w.cfg.AppID == "" || w.cfg.RedirectURI == "" {
		return "", fmt.Errorf("%w: wechat app id or redirect uri missing", ErrUnconfigured)
	}

	q := url.Values{}
	q.Set("appid", w.cfg.AppID)
	q.Set("redirect_uri", w.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", w.cfg.Scope)
	q.Set("state", state)
	return w.cfg.AuthURL + "?" + q.Encode() + wechatFragment, nil
}

type wechatTokenResponse struct {
	AccessToken string `json:"access_token"`
	OpenID      string `json:"openid"`
	UnionID     string `json:"unionid"`
	Scope       string `json:"scope"`
	ErrCode     *int   `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

func (w *WeChat) Exchange(ctx context.Context, code string) (Identity, error) {
	if w.cfg.AppID == "" || w.cfg.AppSecret == "" {
		return Identity{}, fmt.Errorf("%w: wechat app id or secret missing", ErrUnconfigured)
	}

	q := url.Values{}
	q.Set("appid", w.cfg.AppID)
	q.Set("secret", w.cfg.AppSecret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to build wechat request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out wechatTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, wechatMaxResponseBytes)).Decode(&out); err != nil {
		return Identity{}, fmt.Errorf("%w: decode response: %v", ErrExchange, err)
	}
	if out.ErrCode != nil && *out.ErrCode != 0 {
		return Identity{}, fmt.Errorf("%w: wechat errcode %d: %s", ErrExchange, *out.ErrCode, out.ErrMsg)
	}
	if out.OpenID == "" {
		return Identity{}, fmt.Errorf("%w: missing openid", ErrExchange)
	}

	return Identity{Provider: ProviderWeChat, Subject: out.OpenID}, nil
}
