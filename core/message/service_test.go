package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/message"
	"github.com/trezcool/schoolhub/core/notification"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/core/user"
	emailsvc "github.com/trezcool/schoolhub/services/email"
	logsvc "github.com/trezcool/schoolhub/services/logger"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService_Send(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewTestLogger(conf)
	db := inmem.Open()
	users := user.NewService(db, user.NewLocalAuthenticator(db))
	notifications := notification.NewService(db)
	settingsSvc := settings.NewService(db)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	svc := message.NewService(db, notifications, settingsSvc, mailer, logger)
	ctx := context.Background()

	parent, err := users.SignUp(ctx, user.SignUp{Email: "pat@home.test", Password: "parent-pass", FirstName: "Pat", LastName: "Ent", Role: user.RoleParent})
	require.NoError(t, err)
	teacher, err := users.SignUp(ctx, user.SignUp{Email: "grace@school.test", Password: "teach-pass", FirstName: "Grace", LastName: "Hopper", Role: user.RoleTeacher})
	require.NoError(t, err)

	_, err = svc.Send(ctx, parent, message.Form{RecipientID: "nobody", Content: "hi"})
	assert.Equal(t, map[string]string{"recipient_id": "unknown recipient"}, core.FieldErrors(err))

	_, err = svc.Send(ctx, parent, message.Form{RecipientID: teacher.ID, Content: "  "})
	assert.Equal(t, map[string]string{"content": "this field cannot be blank"}, core.FieldErrors(err))

	msg, err := svc.Send(ctx, parent, message.Form{RecipientID: teacher.ID, Subject: "Homework", Content: "Is there homework today?"})
	require.NoError(t, err)
	assert.False(t, msg.Read())

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "grace@school.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Pat Ent sent you a message")

	ns, err := notifications.ForUser(ctx, teacher.ID)
	require.NoError(t, err)
	if assert.Len(t, ns, 1) {
		assert.Equal(t, "New message from Pat Ent", ns[0].Title)
		assert.Equal(t, "Homework", ns[0].Message)
	}

	inbox, err := svc.Inbox(ctx, teacher.ID)
	require.NoError(t, err)
	if assert.Len(t, inbox, 1) {
		assert.Equal(t, "Pat Ent", inbox[0].SenderName)
		assert.Equal(t, "Grace Hopper", inbox[0].RecipientName)
	}
	outbox, err := svc.Outbox(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, outbox, 1)

	unread, err := svc.UnreadCount(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	assert.True(t, core.IsNotFound(svc.MarkRead(ctx, parent.ID, msg.ID)))
	require.NoError(t, svc.MarkRead(ctx, teacher.ID, msg.ID))
	unread, err = svc.UnreadCount(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	// alerts off
	form := settings.FormOf(settings.Defaults())
	form.EmailAlerts = false
	form.Notifications = false
	_, err = settingsSvc.Save(ctx, form)
	require.NoError(t, err)
	mailer.Reset()

	_, err = svc.Send(ctx, teacher, message.Form{RecipientID: parent.ID, Content: "Yes, page 12."})
	require.NoError(t, err)
	assert.Empty(t, mailer.Sent())
	ns, err = notifications.ForUser(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, ns)
}
