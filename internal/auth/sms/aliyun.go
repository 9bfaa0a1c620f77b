package sms

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessiongate/pkg/cryptox"
	"github.com/aussiebroadwan/sessiongate/pkg/slogx"
)

const (
	DefaultAliyunEndpoint = "https://dysmsapi.aliyuncs.com/"
	DefaultAliyunRegion   = "cn-hangzhou"
	DefaultAliyunCodeKey  = "code"
	DefaultAliyunTimeout  = 15 * time.Second

	aliyunAPIVersion = "2017-05-25"
)

var ErrSendFailed = errors.New("sms: send failed")

// AliyunSender sends codes through the Dysmsapi SendSms RPC action.
type AliyunSender struct {
	AccessKeyID     string
	AccessKeySecret string
	SignName        string
	TemplateCode    string
	RegionID        string
	CodeKey         string
	Endpoint        string

	HTTPClient *http.Client
	Now        func() time.Time
}

func NewAliyunSender(cfg Config) *AliyunSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultAliyunTimeout
	}
	return &AliyunSender{
		AccessKeyID:     cfg.AliyunAccessKeyID,
		AccessKeySecret: cfg.AliyunAccessKeySecret,
		SignName:        cfg.AliyunSignName,
		TemplateCode:    cfg.AliyunTemplateCodeLogin,
		RegionID:        orDefault(cfg.AliyunRegionID, DefaultAliyunRegion),
		CodeKey:         orDefault(cfg.AliyunTemplateCodeKey, DefaultAliyunCodeKey),
		Endpoint:        orDefault(cfg.AliyunEndpoint, DefaultAliyunEndpoint),
		HTTPClient:      &http.Client{Timeout: timeout},
		Now:             time.Now,
	}
}

func (s *AliyunSender) Name() string { return ProviderAliyun }

type aliyunResponse struct {
	Code      string `json:"Code"`
	Message   string `json:"Message"`
	RequestID string `json:"RequestId"`
	BizID     string `json:"BizId"`
}

func (s *AliyunSender) SendLoginCode(ctx context.Context, phone, code string) error {
	masked := slogx.MaskPhone(phone)

	templateParam, err := json.Marshal(map[string]string{s.CodeKey: code})
	if err != nil {
		return fmt.Errorf("failed to encode template param: %w", err)
	}

	nonce, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("AccessKeyId", s.AccessKeyID)
	params.Set("Action", "SendSms")
	params.Set("Format", "JSON")
	params.Set("PhoneNumbers", phone)
	params.Set("RegionId", s.RegionID)
	params.Set("SignName", s.SignName)
	params.Set("SignatureMethod", "HMAC-SHA1")
	params.Set("SignatureNonce", nonce)
	params.Set("SignatureVersion", "1.0")
	params.Set("TemplateCode", s.TemplateCode)
	params.Set("TemplateParam", string(templateParam))
	params.Set("Timestamp", s.now().UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("Version", aliyunAPIVersion)

	query := canonicalQuery(params)
	signature := signRPC(http.MethodGet, query, s.AccessKeySecret)

	reqURL := s.Endpoint + "?Signature=" + percentEncode(signature) + "&" + query
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSendFailed, masked, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", ErrSendFailed, masked, err)
	}

	var out aliyunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: %s: status %d", ErrSendFailed, masked, resp.StatusCode)
	}
	if out.Code != "OK" {
		slogx.FromContext(ctx).Error("aliyun sms rejected",
			"phone", masked,
			"code", out.Code,
			"message", out.Message,
			"request_id", out.RequestID,
		)
		return fmt.Errorf("%w: %s %s", ErrSendFailed, out.Code, out.Message)
	}

	slogx.FromContext(ctx).Debug("aliyun sms sent", "phone", masked, "request_id", out.RequestID, "biz_id", out.BizID)
	return nil
}

func (s *AliyunSender) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// canonicalQuery joins params sorted by key, each side percent-encoded.
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, percentEncode(k)+"="+percentEncode(params.Get(k)))
	}
	return strings.Join(parts, "&")
}

// signRPC computes the RPC v1 signature over method and canonical query.
func signRPC(method, canonical, secret string) string {
	stringToSign := method + "&" + percentEncode("/") + "&" + percentEncode(canonical)
	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode is RFC 3986 encoding as the RPC signature expects it.
func percentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
