package main

import (
	"context"
	"errors"

	"github.com/kat-co/vala"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/user"
)

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errInvalidRole      = errors.New("invalid role")
	errSuperInCenter    = errors.New("super users are not bound to a center")
)

func usernameOrEmail(uname, email string) vala.Checker {
	return func() (bool, string) {
		return uname != "" || email != "", "username or email is required"
	}
}

func (cli *commandLine) runAddUser(args []string) error {
	cmd := cli.newFlagSet("adduser")
	uname := cmd.String("username", "", "The user's username.")
	email := cmd.String("email", "", "The user's email. The password will be prompted next.")
	name := cmd.String("name", "", "The user's full name (defaults to the username).")
	centerSlug := cmd.String("center", "", "The slug of the user's center. Without it, a platform operator is added.")
	role := cmd.String("role", "", "The user's role (default: admin:owner within a center, super: otherwise).")
	if err := cli.parse(cmd, args); err != nil {
		return err
	}
	if err := vala.BeginValidation().Validate(usernameOrEmail(*uname, *email)).Check(); err != nil {
		cmd.Usage()
		return errHelp
	}

	pwd, err := cli.readPassword(true /* confirm */)
	if err != nil {
		return err
	}
	if pwd == "" {
		cmd.Usage()
		return errHelp
	}
	usr, created, err := cli.addUser(*centerSlug, *name, *uname, *email, *role, pwd)
	if err != nil {
		return err
	}
	if created {
		cli.printf("user %q created (%s)\n", usr.Username, usr.ID)
	} else {
		cli.printf("user %q updated (%s)\n", usr.Username, usr.ID)
	}
	return nil
}

// addUser updates or creates an active user.User holding `role`.
func (cli *commandLine) addUser(centerSlug, name, uname, email, role, pwd string) (user.User, bool, error) {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	var centerID string
	if centerSlug != "" {
		c, err := cli.centers.GetBySlug(ctx, centerSlug)
		if err != nil {
			return user.User{}, false, err
		}
		centerID = c.ID
	}
	switch {
	case role == "" && centerID == "":
		role = user.RoleSuper
	case role == "":
		role = user.RoleAdminOwner
	case !core.StringsContain(user.AllRoles, role):
		return user.User{}, false, errInvalidRole
	case role == user.RoleSuper && centerID != "":
		return user.User{}, false, errSuperInCenter
	case role != user.RoleSuper && centerID == "":
		return user.User{}, false, user.ErrCenterRequired
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err == nil {
		usr.CenterID = centerID
		usr.Roles = []string{role}
		usr.IsActive = true
		if name != "" {
			usr.Name = core.CleanString(name)
		}
		if err = usr.SetPassword(pwd); err != nil {
			return user.User{}, false, err
		}
		usr.UpdatedAt = user.NowFunc().UTC()
		usr, err = cli.usrRepo.UpdateUser(ctx, usr)
		return usr, false, err
	}
	if err != user.ErrNotFound {
		return user.User{}, false, err
	}

	if name == "" {
		name = uname
		if name == "" {
			name = email
		}
	}
	nu := user.NewUser{
		CenterID:        centerID,
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{role},
	}
	if err = cli.validate.Struct(nu); err != nil {
		return user.User{}, false, err
	}
	now := user.NowFunc().UTC()
	usr = user.User{
		CenterID:  centerID,
		Name:      core.CleanString(nu.Name),
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, false, err
	}
	usr, err = cli.usrRepo.CreateUser(ctx, usr)
	return usr, true, err
}
