package codesender

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-auth/internal/domain/auth"
	"github.com/target/mmk-auth/internal/ports"
)

func TestLogSender_RedactsRecipientAndCode(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := s.Send(context.Background(), ports.CodeDelivery{
		Kind: domainauth.KindConfirm,
		Type: domainauth.RecipientEmail,
		To:   "alice@example.com",
		Code: "482913",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"to":"a***@example.com"`)
	assert.Contains(t, out, `"kind":"confirm"`)
	assert.NotContains(t, out, "482913")
	assert.NotContains(t, out, "alice@")

	assert.Error(t, s.Send(context.Background(), ports.CodeDelivery{}))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***1234", Redact(domainauth.RecipientPhone, "+15550001234"))
	assert.Equal(t, "***", Redact(domainauth.RecipientPhone, "123"))
	assert.Equal(t, "b***@x.io", Redact(domainauth.RecipientEmail, "bob@x.io"))
	assert.Equal(t, "***", Redact(domainauth.RecipientEmail, "@x.io"))
	assert.Equal(t, "***", Redact("", "whatever"))
}

func TestFanout(t *testing.T) {
	var calls atomic.Int32
	ok := Func(func(context.Context, ports.CodeDelivery) error {
		calls.Add(1)
		return nil
	})
	failing := Func(func(context.Context, ports.CodeDelivery) error {
		calls.Add(1)
		return errors.New("smtp down")
	})

	f := NewFanout(nil, Registration{Name: "log", Sender: ok}, Registration{Sender: nil})
	assert.True(t, f.Enabled())
	require.NoError(t, f.Send(context.Background(), ports.CodeDelivery{To: "a@b.com"}))
	assert.Equal(t, int32(1), calls.Load())

	f = NewFanout(nil, Registration{Name: "log", Sender: ok}, Registration{Name: "mail", Sender: failing})
	err := f.Send(context.Background(), ports.CodeDelivery{To: "a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail: smtp down")
	assert.Equal(t, int32(3), calls.Load())

	assert.False(t, NewFanout(nil).Enabled())
	assert.NoError(t, Func(nil).Send(context.Background(), ports.CodeDelivery{}))
}
