package finance

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/core/student"
)

type Service struct {
	store    core.Store
	settings *settings.Service
	mailer   core.EmailService
	logger   core.Logger
}

func NewService(store core.Store, settingsSvc *settings.Service, mailer core.EmailService, logger core.Logger) *Service {
	return &Service{store: store, settings: settingsSvc, mailer: mailer, logger: logger}
}

// Query returns all fees ordered by due date.
func (svc *Service) Query(ctx context.Context) ([]Fee, error) {
	var fees []Fee
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Asc("due_date")), &fees)
	return fees, errors.Wrap(err, "selecting fees")
}

// ForStudents returns the fees of the given students, ordered by due date.
func (svc *Service) ForStudents(ctx context.Context, studentIDs ...string) ([]Fee, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var fees []Fee
	q := core.Where(core.In("student_id", studentIDs)).OrderBy(core.Asc("due_date"))
	err := svc.store.Select(ctx, Table, q, &fees)
	return fees, errors.Wrap(err, "selecting student fees")
}

func (svc *Service) Create(ctx context.Context, data Form) (Fee, error) {
	if err := data.Validate(); err != nil {
		return Fee{}, err
	}
	f := Fee{
		ID:          uuid.NewString(),
		StudentID:   data.StudentID,
		Description: data.Description,
		Amount:      data.Amount,
		DueDate:     data.DueDate,
		Status:      StatusPending,
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created Fee
	if err := svc.store.Insert(ctx, Table, f, &created); err != nil {
		return Fee{}, errors.Wrap(err, "inserting fee")
	}
	return created, nil
}

// MarkPaid settles the fee in full, today.
func (svc *Service) MarkPaid(ctx context.Context, id string) (Fee, error) {
	var f Fee
	if err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &f); err != nil {
		return Fee{}, errors.Wrap(err, "getting fee")
	}
	patch := map[string]interface{}{
		"status":      StatusPaid,
		"paid_amount": null.Float64From(f.Amount),
		"paid_date":   null.StringFrom(core.Today()),
	}
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, patch, &f)
	return f, errors.Wrap(err, "marking fee as paid")
}

// RefreshOverdue flags the pending fees due before day (YYYY-MM-DD) as overdue and returns how many changed.
func (svc *Service) RefreshOverdue(ctx context.Context, day string) (int, error) {
	var late []Fee
	q := core.Where(core.Eq("status", StatusPending), core.Lte("due_date", day))
	if err := svc.store.Select(ctx, Table, q, &late); err != nil {
		return 0, errors.Wrap(err, "selecting pending fees")
	}
	ids := make([]string, 0, len(late))
	for _, f := range late {
		if f.DueDate < day {
			ids = append(ids, f.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	patch := map[string]interface{}{"status": StatusOverdue}
	if err := svc.store.Update(ctx, Table, []core.Filter{core.In("id", ids)}, patch, nil); err != nil {
		return 0, errors.Wrap(err, "flagging overdue fees")
	}
	return len(ids), nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type (
	reminderFee struct {
		Description string
		Amount      float64
		DueDate     string
	}

	reminderData struct {
		ParentName  string
		StudentName string
		Fees        []reminderFee
		Total       float64
	}
)

// SendReminders emails the parents of the students with overdue fees, a statement attached.
// Nothing is sent when email alerts are turned off in the settings. The number of emails queued is returned.
func (svc *Service) SendReminders(ctx context.Context) (int, error) {
	conf, err := svc.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	if !conf.EmailAlerts {
		return 0, nil
	}

	if _, err := svc.RefreshOverdue(ctx, core.Today()); err != nil {
		return 0, err
	}
	var overdue []Fee
	q := core.Where(core.Eq("status", StatusOverdue)).OrderBy(core.Asc("due_date"))
	if err := svc.store.Select(ctx, Table, q, &overdue); err != nil {
		return 0, errors.Wrap(err, "selecting overdue fees")
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	perStudent := make(map[string][]Fee)
	ids := make([]string, 0)
	for _, f := range overdue {
		if _, ok := perStudent[f.StudentID]; !ok {
			ids = append(ids, f.StudentID)
		}
		perStudent[f.StudentID] = append(perStudent[f.StudentID], f)
	}
	var students []student.Student
	if err := svc.store.Select(ctx, student.Table, core.Where(core.In("id", ids)), &students); err != nil {
		return 0, errors.Wrap(err, "selecting students")
	}

	messages := make([]*core.EmailMessage, 0, len(students))
	for _, s := range students {
		if !s.ParentEmail.Valid {
			continue
		}
		msg, err := svc.reminder(s, perStudent[s.ID])
		if err != nil {
			svc.logger.Error(fmt.Sprintf("preparing fee reminder of %s: %v", s.StudentID, err), err)
			continue
		}
		messages = append(messages, msg)
	}
	if len(messages) > 0 {
		svc.mailer.SendMessages(messages...)
	}
	return len(messages), nil
}

func (svc *Service) reminder(s student.Student, fees []Fee) (*core.EmailMessage, error) {
	data := reminderData{
		ParentName:  s.ParentName.String,
		StudentName: s.FullName(),
	}
	if data.ParentName == "" {
		data.ParentName = "Parent"
	}
	for _, f := range fees {
		data.Fees = append(data.Fees, reminderFee{Description: f.Description, Amount: f.Amount, DueDate: f.DueDate})
		data.Total += f.Amount
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: s.ParentName.String, Address: s.ParentEmail.String}},
		Subject:      fmt.Sprintf("Overdue fees for %s", data.StudentName),
		TemplateName: "fee_reminder",
		TemplateData: data,
	}
	var buf bytes.Buffer
	if err := sheet.Write(&buf, Sheet(fees, map[string]string{s.ID: data.StudentName})); err != nil {
		return nil, errors.Wrap(err, "writing statement")
	}
	if err := msg.Attach(&buf, "statement.xlsx", sheet.ContentType); err != nil {
		return nil, errors.Wrap(err, "attaching statement")
	}
	return msg, nil
}
