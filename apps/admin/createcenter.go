package main

import (
	"context"

	"github.com/kat-co/vala"

	"github.com/trezcool/kidcare/core/center"
)

func (cli *commandLine) runCreateCenter(args []string) error {
	cmd := cli.newFlagSet("createcenter")
	name := cmd.String("name", "", "The center's name.")
	slug := cmd.String("slug", "", "The center's sub-domain (derived from the name when empty).")
	domain := cmd.String("domain", "", "The center's custom domain.")
	preset := cmd.String("preset", "", "The branding preset of the center site.")
	if err := cli.parse(cmd, args); err != nil {
		return err
	}
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(*name, "name")).Check(); err != nil {
		cmd.Usage()
		return errHelp
	}

	ctx := context.Background()
	nc := center.NewCenter{
		Name:         *name,
		Slug:         *slug,
		CustomDomain: *domain,
		Branding:     center.Branding{Preset: *preset},
	}
	if err := nc.Validate(ctx, cli.validate, cli.centers); err != nil {
		return err
	}
	c, err := cli.centers.Create(ctx, nc)
	if err != nil {
		return err
	}
	cli.printf("center %q created (%s): %s\n", c.Slug, c.ID, cli.centers.URL(c))
	return nil
}
