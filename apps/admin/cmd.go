package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/schoolhub/core/finance"
	"github.com/trezcool/schoolhub/core/portal"
	"github.com/trezcool/schoolhub/core/student"
	"github.com/trezcool/schoolhub/core/user"
	"github.com/trezcool/schoolhub/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp   = errors.New("help provided")
	errNoSQL  = errors.New("migrations need a SQL backend (sqlite or postgres)")
	errNoPass = errors.New("empty password")
)

type commandLine struct {
	db       *sqlx.DB // nil unless the backend is a SQL database
	users    *user.Service
	students *student.Service
	portal   *portal.Service
	finance  *finance.Service
	out      io.Writer
}

func (cli *commandLine) output() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cli.output(), format, args...)
}

func (cli *commandLine) promptPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPass
	}
	return string(pwd), nil
}

// run executes the command named by args (args[0] being the program name).
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "School hub administration",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(cli.output())
	root.SetErr(cli.output())

	root.AddCommand(
		cli.newMigrateCmd(),
		cli.newAddUserCmd(),
		cli.newResetPasswordCmd(),
		cli.newImportStudentsCmd(),
		cli.newRemindCmd(),
	)
	return root
}

func (cli *commandLine) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose command (up, down, status, version, redo, reset, up-to N, down-to N, create NAME)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) newAddUserCmd() *cobra.Command {
	var nu newUser
	cmd := &cobra.Command{
		Use:     "adduser",
		Short:   "Create an account; the password is prompted",
		Example: "  admin adduser --email mama@home.test --role parent --student STU-2024-0001",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			nu.password = pwd
			return cli.addUser(nu)
		},
	}
	cmd.Flags().StringVar(&nu.email, "email", "", "The user's email (required)")
	cmd.Flags().StringVar(&nu.role, "role", "", "One of admin, teacher, student, parent (required)")
	cmd.Flags().StringVar(&nu.firstName, "first", "", "First name (defaults to the email user name)")
	cmd.Flags().StringVar(&nu.lastName, "last", "", "Last name")
	cmd.Flags().StringVar(&nu.studentCode, "student", "", "Student ID (STU-...) to link: the student's own record, or a child of a parent")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func (cli *commandLine) newResetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			return cli.resetPassword(email, pwd)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) newImportStudentsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "importstudents",
		Short: "Import students from a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.importStudents(file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path of the .xlsx file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (cli *commandLine) newRemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Email the parents of students with overdue fees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.remind()
		},
	}
}
