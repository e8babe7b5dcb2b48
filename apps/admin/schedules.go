package main

import (
	"context"

	"github.com/trezcool/kidcare/core/schedule"
)

func (cli *commandLine) runCompleteSchedules(args []string) error {
	cmd := cli.newFlagSet("completeschedules")
	centerSlug := cmd.String("center", "", "The slug of the center. Without it, every center is processed.")
	if err := cli.parse(cmd, args); err != nil {
		return err
	}

	ctx := context.Background()
	var centerID string
	if *centerSlug != "" {
		c, err := cli.centers.GetBySlug(ctx, *centerSlug)
		if err != nil {
			return err
		}
		centerID = c.ID
	}
	n, err := cli.schedules.AutoComplete(ctx, centerID, schedule.NowFunc())
	if err != nil {
		return err
	}
	cli.printf("%d session(s) completed\n", n)
	return nil
}
