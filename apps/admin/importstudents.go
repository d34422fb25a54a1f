package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening spreadsheet")
	}
	defer f.Close()

	n, err := cli.students.Import(context.Background(), f)
	if err != nil {
		return err
	}
	cli.printf("%d students imported\n", n)
	return nil
}
