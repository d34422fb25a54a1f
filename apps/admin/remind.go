package main

import (
	"context"
)

func (cli *commandLine) remind() error {
	n, err := cli.finance.SendReminders(context.Background())
	if err != nil {
		return err
	}
	cli.printf("%d parents notified of overdue fees\n", n)
	return nil
}
