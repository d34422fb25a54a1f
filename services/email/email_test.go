package emailsvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	logsvc "github.com/trezcool/schoolhub/services/logger"
)

func newMessage() *core.EmailMessage {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "Pat Ent", Address: "pat@home.test"}},
		Subject:      "New message",
		TemplateName: "new_message",
		TemplateData: map[string]string{
			"RecipientName": "Pat",
			"SenderName":    "Grace Hopper",
			"Subject":       "Field trip",
			"Content":       "Bring a lunch.",
		},
	}
	return msg
}

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, logsvc.NewTestLogger(conf))

	msg := newMessage()
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n"), "data.csv", "text/csv"))
	svc.SendMessages(msg, &core.EmailMessage{Subject: "no recipients", BodyStr: "lol"})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Grace Hopper")
	assert.Contains(t, sent[0].TextContent, "Bring a lunch.")
	assert.Contains(t, sent[0].HTMLContent, "Field trip")

	body, err := svc.format(sent[0])
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Smart School Hub] New message")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "attachment; filename=data.csv")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestSendgridService_send(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.key"
	conf.MailRetries = 3

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Contains(t, string(body), "pat@home.test")

		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewSendgridService(conf, logsvc.NewTestLogger(conf)).(*sendgridService)
	svc.host = srv.URL
	svc.delay = 0

	msg := newMessage()
	require.NoError(t, msg.Render())
	require.NoError(t, svc.send(context.Background(), *msg))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSendgridService_send_badRequest(t *testing.T) {
	conf := core.NewTestConfig()
	conf.MailRetries = 3

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := NewSendgridService(conf, logsvc.NewTestLogger(conf)).(*sendgridService)
	svc.host = srv.URL
	svc.delay = 0

	err := svc.send(context.Background(), core.EmailMessage{To: []mail.Address{{Address: "a@b.test"}}, BodyStr: "hi"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
