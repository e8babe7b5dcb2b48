package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out        io.Writer
	db         *sql.DB
	validate   *validator.Validate
	usrRepo    user.Repository
	centers    *center.Service
	therapists *therapist.Service
	schedules  *schedule.Service
	pinger     *seo.Pinger
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS]                                       - run DB migrations (up, down, status, ...)\n")
	cli.printf("  createcenter -name NAME [-slug SLUG] [-domain DOMAIN]        - create a center\n")
	cli.printf("  adduser -username USERNAME -email EMAIL [-center SLUG] [-role ROLE] [-name NAME]\n")
	cli.printf("                                                               - create or update a user\n")
	cli.printf("  resetpassword -username USERNAME|EMAIL                       - reset user's password\n")
	cli.printf("  completeschedules [-center SLUG]                             - complete past due sessions\n")
	cli.printf("  pingindex -center SLUG                                       - notify search engines of a center site\n")
}

// readPassword prompts for a password, twice when `confirm` is set.
func (cli *commandLine) readPassword(confirm bool) (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	if confirm && len(pwd) > 0 {
		cli.printf("Confirm password:")
		pwd2, err := readPasswordFunc(int(syscall.Stdin))
		cli.printf("\n")
		if err != nil {
			return "", err
		}
		if string(pwd) != string(pwd2) {
			return "", errPasswordMismatch
		}
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printf("Usage: migrate COMMAND [ARGS]\n")
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createcenter":
		return cli.runCreateCenter(args[2:])
	case "adduser":
		return cli.runAddUser(args[2:])
	case "resetpassword":
		return cli.runResetPassword(args[2:])
	case "completeschedules":
		return cli.runCompleteSchedules(args[2:])
	case "pingindex":
		return cli.runPingIndex(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}
