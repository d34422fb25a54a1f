package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	"github.com/trezcool/schoolhub/apps/portal/di"
	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/portal"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/user"
)

type deps struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DB       *sqlx.DB
	Users    *user.Service
	Students *student.Service
	Portal   *portal.Service
	Finance  *finance.Service
}

func main() {
	code := 0
	err := di.New().Invoke(func(d deps) {
		core.ParseEmailTemplates(d.Conf, d.Logger)
		if d.DB != nil {
			defer d.DB.Close()
		}

		cli := commandLine{
			db:       d.DB,
			users:    d.Users,
			students: d.Students,
			portal:   d.Portal,
			finance:  d.Finance,
		}
		if err := cli.run(os.Args); err != nil {
			if !errors.Is(err, errHelp) {
				fmt.Printf("\nerror: %s\n", core.ErrorMessage(err))
			}
			code = 1
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}
