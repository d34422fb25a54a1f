// Package portal assembles the pages of the student and parent portals.
package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/calendar"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/message"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/user"
)

const ParentStudentsTable = "parent_students"

const upcomingEvents = 5

// ErrNotLinked is returned when the signed-in user has no student record attached.
var ErrNotLinked = errors.New("no student record is linked to this account yet")

// ParentStudent is a row of the parent_students table.
type ParentStudent struct {
	ID           string      `db:"id" json:"id"`
	ParentUserID string      `db:"parent_user_id" json:"parent_user_id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	Relationship null.String `db:"relationship" json:"relationship"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

type (
	StudentPage struct {
		Student    student.Student
		GradeName  string
		Results    []grade.SubjectResult
		GPA        float64
		Attendance attendance.Stats
		Homework   []grade.Homework
		Events     []calendar.Event
	}

	Child struct {
		Student           student.Student
		GradeName         string
		GPA               float64
		AttendancePercent int
		Results           []grade.SubjectResult
	}

	ParentPage struct {
		Children []Child
		Selected *Child
		// Fees of the selected child still due (pending or overdue).
		Fees     []finance.Fee
		Messages []message.Entry
		Teachers []user.Profile
		Events   []calendar.Event
	}
)

type Service struct {
	store      core.Store
	students   *student.Service
	levels     *gradelevel.Service
	grades     *grade.Service
	attendance *attendance.Service
	finance    *finance.Service
	messages   *message.Service
	calendar   *calendar.Service
	users      *user.Service
}

func NewService(
	store core.Store,
	students *student.Service,
	levels *gradelevel.Service,
	grades *grade.Service,
	attendanceSvc *attendance.Service,
	financeSvc *finance.Service,
	messages *message.Service,
	calendarSvc *calendar.Service,
	users *user.Service,
) *Service {
	return &Service{
		store:      store,
		students:   students,
		levels:     levels,
		grades:     grades,
		attendance: attendanceSvc,
		finance:    financeSvc,
		messages:   messages,
		calendar:   calendarSvc,
		users:      users,
	}
}

// StudentPage gathers the portal of the student account userID.
func (svc *Service) StudentPage(ctx context.Context, userID string) (StudentPage, error) {
	var page StudentPage
	s, err := svc.students.ForUser(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return page, ErrNotLinked
		}
		return page, err
	}
	page.Student = s

	levels, err := svc.levels.Query(ctx)
	if err != nil {
		return page, err
	}
	page.GradeName = gradelevel.Name(levels, s.GradeLevelID)

	grades, err := svc.grades.ForStudents(ctx, s.ID)
	if err != nil {
		return page, err
	}
	subjects, err := svc.grades.Subjects(ctx)
	if err != nil {
		return page, err
	}
	page.Results = grade.Results(grades, subjects)
	page.GPA = grade.GPA(grades)

	records, err := svc.attendance.ForStudents(ctx, s.ID)
	if err != nil {
		return page, err
	}
	page.Attendance = attendance.StatsOf(records)

	if page.Homework, err = svc.grades.Homework(ctx, s.ID); err != nil {
		return page, err
	}
	if page.Events, err = svc.calendar.Upcoming(ctx, upcomingEvents); err != nil {
		return page, err
	}
	return page, nil
}

// Children returns the students linked to the parent account.
func (svc *Service) Children(ctx context.Context, parentUserID string) ([]student.Student, error) {
	var links []ParentStudent
	if err := svc.store.Select(ctx, ParentStudentsTable, core.Where(core.Eq("parent_user_id", parentUserID)), &links); err != nil {
		return nil, errors.Wrap(err, "selecting children")
	}
	if len(links) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.StudentID)
	}
	return svc.students.ByIDs(ctx, ids)
}

// LinkChild attaches a student to a parent account. Linking twice is a no-op.
func (svc *Service) LinkChild(ctx context.Context, parentUserID, studentID, relationship string) (ParentStudent, error) {
	var link ParentStudent
	q := core.Where(core.Eq("parent_user_id", parentUserID), core.Eq("student_id", studentID))
	err := svc.store.Get(ctx, ParentStudentsTable, q, &link)
	if err == nil || !core.IsNotFound(err) {
		return link, errors.Wrap(err, "getting parent link")
	}
	if _, err := svc.students.Get(ctx, studentID); err != nil {
		return link, err
	}

	link = ParentStudent{
		ID:           uuid.NewString(),
		ParentUserID: parentUserID,
		StudentID:    studentID,
		Relationship: core.NullString(relationship),
		CreatedAt:    core.NowFunc().UTC(),
	}
	var created ParentStudent
	if err := svc.store.Insert(ctx, ParentStudentsTable, link, &created); err != nil {
		return ParentStudent{}, errors.Wrap(err, "inserting parent link")
	}
	return created, nil
}

// ParentPage gathers the portal of the parent account userID; childID selects a child (the first one by default).
func (svc *Service) ParentPage(ctx context.Context, userID, childID string) (ParentPage, error) {
	var page ParentPage
	children, err := svc.Children(ctx, userID)
	if err != nil {
		return page, err
	}

	if len(children) > 0 {
		levels, err := svc.levels.Query(ctx)
		if err != nil {
			return page, err
		}
		ids := make([]string, 0, len(children))
		for _, s := range children {
			ids = append(ids, s.ID)
		}
		grades, err := svc.grades.ForStudents(ctx, ids...)
		if err != nil {
			return page, err
		}
		subjects, err := svc.grades.Subjects(ctx)
		if err != nil {
			return page, err
		}
		records, err := svc.attendance.ForStudents(ctx, ids...)
		if err != nil {
			return page, err
		}

		gradesOf := make(map[string][]grade.Grade)
		for _, g := range grades {
			gradesOf[g.StudentID] = append(gradesOf[g.StudentID], g)
		}
		recordsOf := make(map[string][]attendance.Record)
		for _, r := range records {
			recordsOf[r.StudentID] = append(recordsOf[r.StudentID], r)
		}
		for _, s := range children {
			page.Children = append(page.Children, Child{
				Student:           s,
				GradeName:         gradelevel.Name(levels, s.GradeLevelID),
				GPA:               grade.GPA(gradesOf[s.ID]),
				AttendancePercent: attendance.StatsOf(recordsOf[s.ID]).PresentPercent(),
				Results:           grade.Results(gradesOf[s.ID], subjects),
			})
		}

		page.Selected = &page.Children[0]
		for i := range page.Children {
			if page.Children[i].Student.ID == childID {
				page.Selected = &page.Children[i]
			}
		}

		fees, err := svc.finance.ForStudents(ctx, page.Selected.Student.ID)
		if err != nil {
			return page, err
		}
		for _, f := range fees {
			if !f.IsPaid() {
				page.Fees = append(page.Fees, f)
			}
		}
	}

	if page.Messages, err = svc.messages.Inbox(ctx, userID); err != nil {
		return page, err
	}
	if page.Teachers, err = svc.users.Profiles(ctx, user.RoleTeacher); err != nil {
		return page, err
	}
	if page.Events, err = svc.calendar.Upcoming(ctx, upcomingEvents); err != nil {
		return page, err
	}
	return page, nil
}
