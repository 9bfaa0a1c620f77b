package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "session-events", slog.New(slog.DiscardHandler))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{
		Type:     SessionLogout,
		Subject:  "01J0USER",
		JTI:      "01J0JTI",
		Occurred: at,
	}))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, "01J0USER", string(msg.Key))
	require.Equal(t, at, msg.Time)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, SessionLogout, got.Type)
	require.Equal(t, "01J0JTI", got.JTI)

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, "session-events", slog.New(slog.DiscardHandler))

	err := p.Publish(context.Background(), Event{Type: TokenRevoked})
	require.ErrorContains(t, err, "broker down")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, p.Publish(context.Background(), Event{Type: LoginSucceeded, Subject: "u1", Method: "phone"}))
	require.Contains(t, buf.String(), `"event":"login.succeeded"`)
	require.Contains(t, buf.String(), `"method":"phone"`)
}
