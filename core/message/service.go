package message

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/notification"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/core/user"
)

var ErrUnknownRecipient = errors.New("unknown recipient")

type Service struct {
	store         core.Store
	notifications *notification.Service
	settings      *settings.Service
	mailer        core.EmailService
	logger        core.Logger
}

func NewService(
	store core.Store,
	notifications *notification.Service,
	settingsSvc *settings.Service,
	mailer core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		store:         store,
		notifications: notifications,
		settings:      settingsSvc,
		mailer:        mailer,
		logger:        logger,
	}
}

// Inbox returns the messages received by the user, newest first.
func (svc *Service) Inbox(ctx context.Context, userID string) ([]Entry, error) {
	return svc.entries(ctx, core.Where(core.Eq("recipient_id", userID)).OrderBy(core.Desc("created_at")))
}

// Outbox returns the messages sent by the user, newest first.
func (svc *Service) Outbox(ctx context.Context, userID string) ([]Entry, error) {
	return svc.entries(ctx, core.Where(core.Eq("sender_id", userID)).OrderBy(core.Desc("created_at")))
}

func (svc *Service) entries(ctx context.Context, q core.Query) ([]Entry, error) {
	var messages []Message
	if err := svc.store.Select(ctx, Table, q, &messages); err != nil {
		return nil, errors.Wrap(err, "selecting messages")
	}
	if len(messages) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, m := range messages {
		for _, id := range []null.String{m.SenderID, m.RecipientID} {
			if id.Valid && !seen[id.String] {
				seen[id.String] = true
				ids = append(ids, id.String)
			}
		}
	}
	var profiles []user.Profile
	if err := svc.store.Select(ctx, user.ProfilesTable, core.Where(core.In("user_id", ids)), &profiles); err != nil {
		return nil, errors.Wrap(err, "selecting profiles")
	}
	return Entries(messages, profiles), nil
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var messages []Message
	q := core.Where(core.Eq("recipient_id", userID), core.Neq("is_read", true))
	if err := svc.store.Select(ctx, Table, q, &messages); err != nil {
		return 0, errors.Wrap(err, "selecting unread messages")
	}
	return len(messages), nil
}

// Send delivers a message from sender. The recipient is notified in-app and, when email alerts are on, by email.
func (svc *Service) Send(ctx context.Context, sender user.Account, data Form) (Message, error) {
	if err := data.Validate(); err != nil {
		return Message{}, err
	}

	var recipient user.Profile
	if err := svc.store.Get(ctx, user.ProfilesTable, core.Where(core.Eq("user_id", data.RecipientID)), &recipient); err != nil {
		if core.IsNotFound(err) {
			return Message{}, core.NewValidationError(ErrUnknownRecipient, core.FieldError{Field: "recipient_id", Error: ErrUnknownRecipient.Error()})
		}
		return Message{}, errors.Wrap(err, "getting recipient")
	}

	m := Message{
		ID:          uuid.NewString(),
		SenderID:    null.StringFrom(sender.ID),
		RecipientID: null.StringFrom(recipient.UserID),
		Subject:     core.NullString(data.Subject),
		Content:     data.Content,
		IsRead:      null.BoolFrom(false),
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created Message
	if err := svc.store.Insert(ctx, Table, m, &created); err != nil {
		return Message{}, errors.Wrap(err, "inserting message")
	}

	conf, err := svc.settings.Get(ctx)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("getting settings: %v", err), err, sender)
		return created, nil
	}
	if conf.Notifications {
		title := "New message from " + sender.DisplayName()
		body := data.Subject
		if body == "" {
			body = data.Content
		}
		_, err := svc.notifications.Create(ctx, notification.New{
			UserID:  recipient.UserID,
			Title:   title,
			Message: body,
			Type:    notification.TypeMessage,
			Link:    "/notifications",
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("notifying %s: %v", recipient.UserID, err), err, sender)
		}
	}
	if conf.EmailAlerts {
		svc.mailer.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: recipient.FullName(), Address: recipient.Email}},
			Subject:      "New message from " + sender.DisplayName(),
			TemplateName: "new_message",
			TemplateData: map[string]string{
				"RecipientName": recipient.FirstName,
				"SenderName":    sender.DisplayName(),
				"Subject":       data.Subject,
				"Content":       data.Content,
			},
		})
	}
	return created, nil
}

// MarkRead flags a message received by the user as read.
func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	filters := []core.Filter{core.Eq("id", id), core.Eq("recipient_id", userID)}
	err := svc.store.Update(ctx, Table, filters, map[string]interface{}{"is_read": true}, nil)
	return errors.Wrap(err, "marking message as read")
}
