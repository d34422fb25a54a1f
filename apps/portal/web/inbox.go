package web

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhub/core/message"
	"github.com/trezcool/schoolhub/core/notification"
	"github.com/trezcool/schoolhub/core/user"
)

type inboxView struct {
	Notifications []notification.Notification
	Messages      []message.Entry
	Sent          []message.Entry
	Recipients    []user.Profile
}

func (s *Server) notificationsPage(ctx echo.Context) error {
	c := reqCtx(ctx)
	acc := account(ctx)

	var v inboxView
	var err error
	if v.Notifications, err = s.deps.Notifications.ForUser(c, acc.ID); err != nil {
		return err
	}
	if v.Messages, err = s.deps.Messages.Inbox(c, acc.ID); err != nil {
		return err
	}
	if v.Sent, err = s.deps.Messages.Outbox(c, acc.ID); err != nil {
		return err
	}
	// staff write to anyone on the staff, families to teachers
	roles := []string{user.RoleTeacher}
	if acc.HasRole(user.RoleAdmin, user.RoleTeacher) {
		roles = append(roles, user.RoleAdmin)
	}
	for _, role := range roles {
		profiles, err := s.deps.Users.Profiles(c, role)
		if err != nil {
			return err
		}
		for _, p := range profiles {
			if p.UserID != acc.ID {
				v.Recipients = append(v.Recipients, p)
			}
		}
	}
	return ctx.Render(http.StatusOK, "notifications", s.page(ctx, "Notifications", v))
}

func (s *Server) readNotification(ctx echo.Context) error {
	if err := s.deps.Notifications.MarkRead(reqCtx(ctx), account(ctx).ID, ctx.Param("id")); err != nil {
		return s.fail(ctx, "/notifications", "Failed to update notification", err)
	}
	return ctx.Redirect(http.StatusSeeOther, "/notifications")
}

func (s *Server) readAllNotifications(ctx echo.Context) error {
	if err := s.deps.Notifications.MarkAllRead(reqCtx(ctx), account(ctx).ID); err != nil {
		return s.fail(ctx, "/notifications", "Failed to update notifications", err)
	}
	return s.done(ctx, "/notifications", "All notifications marked as read")
}

// backTo is the local page named by the "next" form field, or the notifications page.
func backTo(ctx echo.Context) string {
	next := ctx.FormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/notifications"
	}
	return next
}

func (s *Server) sendMessage(ctx echo.Context) error {
	to := backTo(ctx)
	var data message.Form
	if err := bind(ctx, &data); err != nil {
		return s.fail(ctx, to, "Failed to send message", err)
	}
	if _, err := s.deps.Messages.Send(reqCtx(ctx), account(ctx), data); err != nil {
		return s.fail(ctx, to, "Failed to send message", err)
	}
	return s.done(ctx, to, "Message sent", "Your message has been sent.")
}

func (s *Server) readMessage(ctx echo.Context) error {
	to := backTo(ctx)
	if err := s.deps.Messages.MarkRead(reqCtx(ctx), account(ctx).ID, ctx.Param("id")); err != nil {
		return s.fail(ctx, to, "Failed to update message", err)
	}
	return ctx.Redirect(http.StatusSeeOther, to)
}
