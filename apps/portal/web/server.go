// Package web is the server-rendered front-end of the school hub.
package web

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/calendar"
	"github.com/trezcool/schoolhub/core/class"
	"github.com/trezcool/schoolhub/core/dashboard"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/message"
	"github.com/trezcool/schoolhub/core/notification"
	"github.com/trezcool/schoolhub/core/portal"
	"github.com/trezcool/schoolhub/core/record"
	"github.com/trezcool/schoolhub/core/report"
	"github.com/trezcool/schoolhub/core/settings"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/teacher"
	"github.com/trezcool/schoolhub/core/user"
)

// Deps are the services the pages are built from.
type Deps struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Blob          core.BlobStore
	Users         *user.Service
	Students      *student.Service
	Levels        *gradelevel.Service
	Teachers      *teacher.Service
	Classes       *class.Service
	Attendance    *attendance.Service
	Finance       *finance.Service
	Calendar      *calendar.Service
	Notifications *notification.Service
	Messages      *message.Service
	Grades        *grade.Service
	Dashboard     *dashboard.Service
	Portal        *portal.Service
	Reports       *report.Service
	Records       *record.Service
	Settings      *settings.Service
}

type Server struct {
	deps Deps

	app      *echo.Echo
	views    *renderer
	flashes  *sessions.CookieStore
	errs     chan error
	shutdown chan os.Signal
}

func NewServer(deps Deps) (*Server, error) {
	views, err := newRenderer(deps.Conf)
	if err != nil {
		return nil, errors.Wrap(err, "parsing web templates")
	}

	flashes := sessions.NewCookieStore([]byte(deps.Conf.SecretKey))
	flashes.Options.HttpOnly = true
	flashes.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		views:    views,
		flashes:  flashes,
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = s.views
	s.app.HTTPErrorHandler = s.errorHandler
	s.app.Logger.SetLevel(log.INFO)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        func(echo.Context) bool { return conf.TestMode },
		TokenLookup:    "form:" + csrfField,
		ContextKey:     csrfContextKey,
		CookiePath:     "/",
		CookieHTTPOnly: true,
	}))

	if conf.Blob.Driver == "disk" && strings.HasPrefix(conf.Blob.PublicBaseURL, "/") {
		uploads := s.app.Group(conf.Blob.PublicBaseURL, noSniff)
		uploads.Static("", conf.Blob.Dir)
	}

	s.routes()
}

func (s *Server) routes() {
	staff := []string{user.RoleAdmin, user.RoleTeacher}
	admin := []string{user.RoleAdmin}

	// public
	s.app.GET("/auth", s.authPage)
	s.app.POST("/auth", s.signIn)
	s.app.POST("/auth/signup", s.signUp)
	s.app.GET("/auth/logout", s.signOut)
	s.app.POST("/auth/logout", s.signOut)

	s.get("/", s.dashboardPage, staff...)

	s.get("/grade-levels", s.gradeLevelsPage, admin...)
	s.post("/grade-levels", s.createGradeLevel, admin...)
	s.post("/grade-levels/:id", s.updateGradeLevel, admin...)
	s.post("/grade-levels/:id/delete", s.deleteGradeLevel, admin...)

	s.get("/students", s.studentsPage, staff...)
	s.post("/students", s.createStudent, staff...)
	s.get("/students/export", s.exportStudents, staff...)
	s.post("/students/import", s.importStudents, staff...)
	s.post("/students/:id", s.updateStudent, staff...)
	s.post("/students/:id/delete", s.deleteStudent, staff...)
	s.post("/students/:id/avatar", s.studentAvatar, staff...)

	s.get("/records", s.recordsPage, staff...)
	s.post("/records", s.requestRecord, staff...)
	s.get("/records/:id/document", s.recordDocument, staff...)

	s.get("/teachers", s.teachersPage, admin...)
	s.post("/teachers", s.createTeacher, admin...)
	s.post("/teachers/:id", s.updateTeacher, admin...)
	s.post("/teachers/:id/delete", s.deleteTeacher, admin...)
	s.post("/teachers/:id/avatar", s.teacherAvatar, admin...)

	s.get("/classes", s.classesPage, staff...)
	s.post("/classes", s.createClass, staff...)
	s.get("/classes/:id", s.classPage, staff...)
	s.post("/classes/:id", s.updateClass, staff...)
	s.post("/classes/:id/delete", s.deleteClass, staff...)
	s.post("/classes/:id/enroll", s.enroll, staff...)
	s.post("/classes/:id/unenroll", s.unenroll, staff...)
	s.post("/classes/:id/grades", s.recordGrade, staff...)
	s.post("/classes/:id/assignments", s.createAssignment, staff...)
	s.post("/classes/:id/submissions/:sid/grade", s.gradeSubmission, staff...)

	s.get("/attendance", s.attendancePage, staff...)
	s.post("/attendance", s.markAttendance, staff...)
	s.get("/attendance/export", s.exportAttendance, staff...)
	s.post("/attendance/:id", s.setAttendanceStatus, staff...)
	s.post("/attendance/:id/delete", s.deleteAttendance, staff...)

	s.get("/calendar", s.calendarPage, staff...)
	s.post("/calendar", s.createEvent, staff...)
	s.post("/calendar/:id", s.updateEvent, staff...)
	s.post("/calendar/:id/delete", s.deleteEvent, staff...)

	s.get("/finance", s.financePage, admin...)
	s.post("/finance", s.createFee, admin...)
	s.get("/finance/export", s.exportFees, admin...)
	s.post("/finance/reminders", s.sendReminders, admin...)
	s.post("/finance/:id/paid", s.markPaid, admin...)
	s.post("/finance/:id/delete", s.deleteFee, admin...)

	s.get("/reports", s.reportsPage, admin...)
	s.get("/reports/:id", s.generateReport, admin...)

	s.get("/settings", s.settingsPage, admin...)
	s.post("/settings", s.saveSettings, admin...)
	s.post("/settings/subjects", s.createSubject, admin...)

	s.get("/student-portal", s.studentPortal, user.RoleStudent)
	s.post("/student-portal/homework/:id", s.submitHomework, user.RoleStudent)
	s.get("/parent-portal", s.parentPortal, user.RoleParent)

	// any signed-in user
	s.get("/notifications", s.notificationsPage)
	s.post("/notifications/read", s.readAllNotifications)
	s.post("/notifications/:id/read", s.readNotification)
	s.post("/messages", s.sendMessage)
	s.post("/messages/:id/read", s.readMessage)
}

func (s *Server) get(path string, h echo.HandlerFunc, roles ...string) {
	s.app.GET(path, h, s.authenticated, s.requireRoles(roles...))
}

func (s *Server) post(path string, h echo.HandlerFunc, roles ...string) {
	s.app.POST(path, h, s.authenticated, s.requireRoles(roles...))
}

// Start blocks until the server stops. Listening failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks main to stop the server gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
