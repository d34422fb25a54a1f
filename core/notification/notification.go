// Package notification is the in-app inbox of system notices (new messages, reminders).
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const Table = "notifications"

const (
	TypeInfo    = "info"
	TypeMessage = "message"
	TypeWarning = "warning"
)

// Notification is a row of the notifications table.
type Notification struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"user_id"`
	Title     string      `db:"title" json:"title"`
	Message   string      `db:"message" json:"message"`
	Type      null.String `db:"type" json:"type"`
	Link      null.String `db:"link" json:"link"`
	IsRead    null.Bool   `db:"is_read" json:"is_read"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

func (n Notification) Read() bool { return n.IsRead.Valid && n.IsRead.Bool }

type New struct {
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"notblank"`
	Message string `json:"message" validate:"notblank"`
	Type    string `json:"type"`
	Link    string `json:"link"`
}

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// ForUser returns the notifications of the user, newest first.
func (svc *Service) ForUser(ctx context.Context, userID string) ([]Notification, error) {
	var ns []Notification
	q := core.Where(core.Eq("user_id", userID)).OrderBy(core.Desc("created_at"))
	err := svc.store.Select(ctx, Table, q, &ns)
	return ns, errors.Wrap(err, "selecting notifications")
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var ns []Notification
	q := core.Where(core.Eq("user_id", userID), core.Neq("is_read", true))
	if err := svc.store.Select(ctx, Table, q, &ns); err != nil {
		return 0, errors.Wrap(err, "selecting unread notifications")
	}
	return len(ns), nil
}

func (svc *Service) Create(ctx context.Context, data New) (Notification, error) {
	data.Title = core.CleanString(data.Title)
	data.Message = core.CleanString(data.Message)
	if err := core.Validate.Struct(data); err != nil {
		return Notification{}, err
	}
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    data.UserID,
		Title:     data.Title,
		Message:   data.Message,
		Type:      core.NullString(data.Type),
		Link:      core.NullString(data.Link),
		IsRead:    null.BoolFrom(false),
		CreatedAt: core.NowFunc().UTC(),
	}
	var created Notification
	if err := svc.store.Insert(ctx, Table, n, &created); err != nil {
		return Notification{}, errors.Wrap(err, "inserting notification")
	}
	return created, nil
}

// MarkRead flags one notification of the user as read.
func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	filters := []core.Filter{core.Eq("id", id), core.Eq("user_id", userID)}
	err := svc.store.Update(ctx, Table, filters, map[string]interface{}{"is_read": true}, nil)
	return errors.Wrap(err, "marking notification as read")
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	filters := []core.Filter{core.Eq("user_id", userID), core.Neq("is_read", true)}
	err := svc.store.Update(ctx, Table, filters, map[string]interface{}{"is_read": true}, nil)
	if core.IsNotFound(err) {
		return nil
	}
	return errors.Wrap(err, "marking notifications as read")
}
