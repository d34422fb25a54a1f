// Package dashboard computes the widgets of the admin and teacher home page.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/calendar"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/message"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/teacher"
)

// Performance thresholds on the average score of a student.
const (
	HighThreshold    = 85
	AverageThreshold = 60
)

const (
	newAdmissionDays = 30
	upcomingEvents   = 3
	latestMessages   = 3
)

type (
	Performance struct {
		High           int
		Average        int
		AtRisk         int
		Segments       []core.DonutSegment
		CompletionRate int
		CourseProgress int
	}

	Task struct {
		Title string
		Count int
		Link  string
	}

	Overview struct {
		Enrolled       int
		NewAdmissions  int
		Gender         core.GenderRatio
		ActiveClasses  int
		ActiveTeachers int
		Rooms          int
		Performance    Performance
		Attendance     attendance.Stats
		Tasks          []Task
		UnreadMessages int
		Messages       []message.Entry
		Events         []calendar.Event
	}
)

// Buckets splits the students by the average of their scored grades: high >= 85, average 60-84, at risk < 60.
// Students without any score are left out.
func Buckets(grades []grade.Grade) (high, average, atRisk int) {
	perStudent := make(map[string][]grade.Grade)
	for _, g := range grades {
		perStudent[g.StudentID] = append(perStudent[g.StudentID], g)
	}
	for _, gs := range perStudent {
		avg, ok := grade.Average(gs)
		switch {
		case !ok:
		case avg >= HighThreshold:
			high++
		case avg >= AverageThreshold:
			average++
		default:
			atRisk++
		}
	}
	return high, average, atRisk
}

// LateHomework counts the (student, assignment) pairs past due on day without a submission handed in.
func LateHomework(assignments []grade.Assignment, enrollments []class.Enrollment, subs []grade.Submission, day string) int {
	perClass := make(map[string][]string)
	for _, e := range enrollments {
		perClass[e.ClassID] = append(perClass[e.ClassID], e.StudentID)
	}
	done := make(map[[2]string]bool)
	for _, s := range subs {
		if s.Done() {
			done[[2]string{s.AssignmentID, s.StudentID}] = true
		}
	}
	var late int
	for _, a := range assignments {
		if a.DueDate >= day {
			continue
		}
		for _, studentID := range perClass[a.ClassID] {
			if !done[[2]string{a.ID, studentID}] {
				late++
			}
		}
	}
	return late
}

// GenderOf counts the male and female students.
func GenderOf(students []student.Student) core.GenderRatio {
	var male, female int
	for _, s := range students {
		switch s.Gender.String {
		case "male":
			male++
		case "female":
			female++
		}
	}
	return core.NewGenderRatio(male, female)
}

type Service struct {
	students   *student.Service
	teachers   *teacher.Service
	classes    *class.Service
	attendance *attendance.Service
	finance    *finance.Service
	calendar   *calendar.Service
	messages   *message.Service
	grades     *grade.Service
}

func NewService(
	students *student.Service,
	teachers *teacher.Service,
	classes *class.Service,
	attendanceSvc *attendance.Service,
	financeSvc *finance.Service,
	calendarSvc *calendar.Service,
	messages *message.Service,
	grades *grade.Service,
) *Service {
	return &Service{
		students:   students,
		teachers:   teachers,
		classes:    classes,
		attendance: attendanceSvc,
		finance:    financeSvc,
		calendar:   calendarSvc,
		messages:   messages,
		grades:     grades,
	}
}

// Overview gathers the home page widgets for the user.
func (svc *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	var ov Overview
	today := core.Today()

	active, err := svc.students.Active(ctx)
	if err != nil {
		return ov, err
	}
	ov.Enrolled = len(active)
	ov.Gender = GenderOf(active)
	since := core.NowFunc().AddDate(0, 0, -newAdmissionDays).Format(core.DateLayout)
	for _, s := range active {
		if s.EnrollmentDate >= since {
			ov.NewAdmissions++
		}
	}

	teachers, err := svc.teachers.Query(ctx)
	if err != nil {
		return ov, err
	}
	for _, t := range teachers {
		if t.IsActive() {
			ov.ActiveTeachers++
		}
	}

	classes, err := svc.classes.Query(ctx)
	if err != nil {
		return ov, err
	}
	ov.ActiveClasses = len(classes)
	ov.Rooms = len(class.Rooms(classes))

	if ov.Performance, err = svc.performance(ctx, today); err != nil {
		return ov, err
	}

	records, err := svc.attendance.Query(ctx, today, "")
	if err != nil {
		return ov, err
	}
	ov.Attendance = attendance.StatsOf(records)

	if ov.Tasks, err = svc.tasks(ctx, today); err != nil {
		return ov, err
	}

	if ov.UnreadMessages, err = svc.messages.UnreadCount(ctx, userID); err != nil {
		return ov, err
	}
	inbox, err := svc.messages.Inbox(ctx, userID)
	if err != nil {
		return ov, err
	}
	if len(inbox) > latestMessages {
		inbox = inbox[:latestMessages]
	}
	ov.Messages = inbox

	if ov.Events, err = svc.calendar.Upcoming(ctx, upcomingEvents); err != nil {
		return ov, err
	}
	return ov, nil
}

func (svc *Service) performance(ctx context.Context, today string) (Performance, error) {
	var p Performance
	grades, err := svc.grades.Query(ctx)
	if err != nil {
		return p, err
	}
	p.High, p.Average, p.AtRisk = Buckets(grades)
	p.Segments = core.Donut(p.AtRisk, p.Average, p.High)

	subs, err := svc.grades.Submissions(ctx)
	if err != nil {
		return p, err
	}
	p.CompletionRate = grade.CompletionRate(subs)

	assignments, err := svc.grades.Assignments(ctx)
	if err != nil {
		return p, err
	}
	p.CourseProgress = grade.Progress(assignments, today)
	return p, nil
}

func (svc *Service) tasks(ctx context.Context, today string) ([]Task, error) {
	assignments, err := svc.grades.Assignments(ctx)
	if err != nil {
		return nil, err
	}
	enrollments, err := svc.classes.Enrollments(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := svc.grades.Submissions(ctx)
	if err != nil {
		return nil, err
	}

	fees, err := svc.finance.Query(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading fees")
	}
	var overdue int
	for _, f := range fees {
		if f.Status == finance.StatusOverdue || f.IsLate(today) {
			overdue++
		}
	}

	return []Task{
		{Title: "Review Late Homework", Count: LateHomework(assignments, enrollments, subs, today), Link: "/classes"},
		{Title: "Follow Up Overdue Fees", Count: overdue, Link: "/finance"},
	}, nil
}

// Greeting is the salutation of the hour.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
