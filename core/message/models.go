package message

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
)

const Table = "messages"

// Message is a row of the messages table.
type Message struct {
	ID          string      `db:"id" json:"id"`
	SenderID    null.String `db:"sender_id" json:"sender_id"`
	RecipientID null.String `db:"recipient_id" json:"recipient_id"`
	Subject     null.String `db:"subject" json:"subject"`
	Content     string      `db:"content" json:"content"`
	IsRead      null.Bool   `db:"is_read" json:"is_read"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

func (m Message) Read() bool { return m.IsRead.Valid && m.IsRead.Bool }

// Form is the compose form.
type Form struct {
	RecipientID string `form:"recipient_id" json:"recipient_id" validate:"required"`
	Subject     string `form:"subject" json:"subject" validate:"max=200"`
	Content     string `form:"content" json:"content" validate:"notblank"`
}

func (f *Form) Validate() error {
	f.RecipientID = core.CleanString(f.RecipientID)
	f.Subject = core.CleanString(f.Subject)
	f.Content = core.CleanString(f.Content)
	return core.Validate.Struct(f)
}

// Entry is a message along with the names of its correspondents.
type Entry struct {
	Message
	SenderName    string
	RecipientName string
}

// Entries joins messages with the names of the profiles.
func Entries(messages []Message, profiles []user.Profile) []Entry {
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.UserID] = p.FullName()
	}
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		e := Entry{Message: m, SenderName: names[m.SenderID.String], RecipientName: names[m.RecipientID.String]}
		if e.SenderName == "" {
			e.SenderName = "Unknown"
		}
		entries = append(entries, e)
	}
	return entries
}
