package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func completeAliyun() Config {
	return Config{
		Provider:                ProviderAliyun,
		AliyunAccessKeyID:       "key-id",
		AliyunAccessKeySecret:   "key-secret",
		AliyunSignName:          "Sessiongate",
		AliyunTemplateCodeLogin: "SMS_0001",
	}
}

func TestNewSender(t *testing.T) {
	incomplete := completeAliyun()
	incomplete.AliyunSignName = ""

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantLog bool
	}{
		{"default", Config{}, ProviderConsole, false},
		{"console", Config{Provider: "console"}, ProviderConsole, false},
		{"aliyun", completeAliyun(), ProviderAliyun, false},
		{"aliyun incomplete", incomplete, ProviderConsole, true},
		{"unknown", Config{Provider: "carrier-pigeon"}, ProviderConsole, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			sender := NewSender(tt.cfg, logger)
			require.Equal(t, tt.want, sender.Name())
			if tt.wantLog {
				require.Contains(t, buf.String(), "level=ERROR")
			} else {
				require.Empty(t, buf.String())
			}
		})
	}
}

func TestConsoleSenderMasksPhone(t *testing.T) {
	var buf bytes.Buffer
	s := &ConsoleSender{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, s.SendLoginCode(context.Background(), "+8613812345678", "123456"))
	require.Contains(t, buf.String(), "861****5678")
	require.Contains(t, buf.String(), "123456")
	require.NotContains(t, buf.String(), "8613812345678")
}

func TestPercentEncode(t *testing.T) {
	require.Equal(t, "a%20b", percentEncode("a b"))
	require.Equal(t, "%2A", percentEncode("*"))
	require.Equal(t, "~", percentEncode("~"))
	require.Equal(t, "%2F", percentEncode("/"))
	require.Equal(t, "%7B%22code%22%3A%221%22%7D", percentEncode(`{"code":"1"}`))
}

func newAliyunTestSender(t *testing.T, handler http.HandlerFunc) *AliyunSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := completeAliyun()
	cfg.AliyunEndpoint = srv.URL + "/"
	s := NewAliyunSender(cfg)
	s.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestAliyunSenderSignsRequest(t *testing.T) {
	var got url.Values
	s := newAliyunTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_ = json.NewEncoder(w).Encode(aliyunResponse{Code: "OK", Message: "OK", RequestID: "req-1"})
	})

	require.NoError(t, s.SendLoginCode(context.Background(), "13812345678", "654321"))

	require.Equal(t, "SendSms", got.Get("Action"))
	require.Equal(t, "13812345678", got.Get("PhoneNumbers"))
	require.Equal(t, "Sessiongate", got.Get("SignName"))
	require.Equal(t, "SMS_0001", got.Get("TemplateCode"))
	require.Equal(t, `{"code":"654321"}`, got.Get("TemplateParam"))
	require.Equal(t, "2026-01-02T03:04:05Z", got.Get("Timestamp"))
	require.Equal(t, DefaultAliyunRegion, got.Get("RegionId"))

	signature := got.Get("Signature")
	got.Del("Signature")
	require.Equal(t, signRPC(http.MethodGet, canonicalQuery(got), "key-secret"), signature)
}

func TestAliyunSenderRejectedCode(t *testing.T) {
	s := newAliyunTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(aliyunResponse{Code: "isv.BUSINESS_LIMIT_CONTROL", Message: "limit"})
	})

	err := s.SendLoginCode(context.Background(), "13812345678", "654321")
	require.ErrorIs(t, err, ErrSendFailed)
	require.Contains(t, err.Error(), "isv.BUSINESS_LIMIT_CONTROL")
}

func TestAliyunSenderNonJSON(t *testing.T) {
	s := newAliyunTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	err := s.SendLoginCode(context.Background(), "13812345678", "654321")
	require.ErrorIs(t, err, ErrSendFailed)
}

func TestAliyunSenderTimeout(t *testing.T) {
	s := newAliyunTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	s.HTTPClient.Timeout = 50 * time.Millisecond

	err := s.SendLoginCode(context.Background(), "13812345678", "654321")
	require.ErrorIs(t, err, ErrSendFailed)
}
