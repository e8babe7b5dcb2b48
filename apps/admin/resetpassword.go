package main

import (
	"context"

	"github.com/kat-co/vala"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/user"
)

func (cli *commandLine) runResetPassword(args []string) error {
	cmd := cli.newFlagSet("resetpassword")
	uname := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
	if err := cli.parse(cmd, args); err != nil {
		return err
	}
	if err := vala.BeginValidation().Validate(vala.StringNotEmpty(*uname, "username")).Check(); err != nil {
		cmd.Usage()
		return errHelp
	}

	pwd, err := cli.readPassword(false)
	if err != nil {
		return err
	}
	if pwd == "" {
		cmd.Usage()
		return errHelp
	}
	if err = cli.resetPassword(*uname, pwd); err != nil {
		return err
	}
	cli.printf("password updated\n")
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, uname}})
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = user.NowFunc().UTC()
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
