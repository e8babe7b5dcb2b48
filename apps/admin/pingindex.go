package main

import (
	"context"
	"fmt"

	"github.com/kat-co/vala"

	"github.com/trezcool/kidcare/core/seo"
)

func (cli *commandLine) runPingIndex(args []string) error {
	cmd := cli.newFlagSet("pingindex")
	centerSlug := cmd.String("center", "", "The slug of the center whose site changed.")
	if err := cli.parse(cmd, args); err != nil {
		return err
	}
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(*centerSlug, "center")).Check(); err != nil {
		cmd.Usage()
		return errHelp
	}

	ctx := context.Background()
	c, err := cli.centers.GetBySlug(ctx, *centerSlug)
	if err != nil {
		return err
	}
	therapists, err := cli.therapists.QueryPublic(ctx, c.ID)
	if err != nil {
		return err
	}
	baseURL := cli.centers.URL(c)
	var urls []string
	for _, e := range seo.CenterEntries(c, therapists) {
		urls = append(urls, seo.Loc(baseURL, e.Path))
	}

	results := cli.pinger.Ping(ctx, seo.Loc(baseURL, "/sitemap.xml"), urls)
	if len(results) == 0 {
		cli.printf("no search engine configured\n")
		return nil
	}
	var failed int
	for _, r := range results {
		if r.OK() {
			cli.printf("%s: ok (%d)\n", r.Engine, r.StatusCode)
			continue
		}
		failed++
		cli.printf("%s: failed (%d) %s\n", r.Engine, r.StatusCode, r.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ping(s) failed", failed, len(results))
	}
	return nil
}
