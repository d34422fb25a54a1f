// Package di wires the school hub services with dig.
package di

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/schoolhub/apps/portal/web"
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
	blobsvc "github.com/trezcool/schoolhub/services/blob"
	cachesvc "github.com/trezcool/schoolhub/services/cache"
	emailsvc "github.com/trezcool/schoolhub/services/email"
	logsvc "github.com/trezcool/schoolhub/services/logger"
	"github.com/trezcool/schoolhub/storage/cached"
	"github.com/trezcool/schoolhub/storage/database"
	"github.com/trezcool/schoolhub/storage/database/sqlstore"
	"github.com/trezcool/schoolhub/storage/inmem"
	"github.com/trezcool/schoolhub/storage/postgrest"
)

type (
	StoreParams struct {
		dig.In
		Conf   *core.Config
		Cache  core.Cache
		Logger core.Logger `name:"dbLogger"`
	}

	// Backend is the data store selected by conf.Backend.Driver along with its authenticator.
	// DB is nil unless the driver is a SQL database.
	Backend struct {
		dig.Out
		Store core.Store
		Auth  user.Authenticator
		DB    *sqlx.DB
	}
)

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrus(conf, os.Stdout), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	std := logsvc.NewLogrus(conf, os.Stdout)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func openSQL(conf *core.Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch conf.Backend.Driver {
	case core.BackendSQLite:
		db, err = database.OpenSQLite(conf.Database.Path)
	case core.BackendPostgres:
		if err = database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err = database.Open(conf)
	}
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewBackend opens the store of conf.Backend.Driver. Reads go through the query cache.
func NewBackend(p StoreParams) (Backend, error) {
	var b Backend
	switch p.Conf.Backend.Driver {
	case core.BackendMemory, "":
		db := inmem.Open()
		b.Store, b.Auth = db, user.NewLocalAuthenticator(db)
	case core.BackendSQLite, core.BackendPostgres:
		db, err := openSQL(p.Conf)
		if err != nil {
			p.Logger.Error(fmt.Sprintf("setting up database: %v", err), err)
			return b, errors.Wrap(err, "setting up database")
		}
		store := sqlstore.New(db)
		b.Store, b.Auth, b.DB = store, user.NewLocalAuthenticator(store), db
	case core.BackendPostgrest:
		if p.Conf.Backend.URL == "" {
			return b, errors.New("backend url is required by the postgrest driver")
		}
		client := postgrest.New(p.Conf)
		b.Store, b.Auth = client, postgrest.NewAuthenticator(client)
	default:
		return b, errors.Errorf("unknown backend driver %q", p.Conf.Backend.Driver)
	}
	b.Store = cached.New(b.Store, p.Cache, p.Logger)
	return b, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// New returns the dependency injection container of the portal and the admin CLI.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}
	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(cachesvc.New))
	must(c.Provide(NewBackend))
	must(c.Provide(newEmailService))
	must(c.Provide(blobsvc.New))

	must(c.Provide(user.NewService))
	must(c.Provide(settings.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(gradelevel.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(teacher.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(calendar.NewService))
	must(c.Provide(grade.NewService))
	must(c.Provide(finance.NewService))
	must(c.Provide(message.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(portal.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(record.NewService))

	must(c.Provide(web.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
