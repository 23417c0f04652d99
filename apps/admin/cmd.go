package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/auth"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotSignedIn = errors.New("not signed in, run: admin login -email EMAIL")
)

type commandLine struct {
	api     *apisvc.Client
	session *session.Store
	guard   *auth.Guard
	logger  core.Logger
	out     io.Writer

	// database opens the session database, for migrations.
	database func(ctx context.Context) (*sql.DB, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                      - sign in, the password is prompted next")
	fmt.Fprintln(cli.out, "  logout                                  - forget the stored session")
	fmt.Fprintln(cli.out, "  whoami                                  - show the signed in user")
	fmt.Fprintln(cli.out, "  forgot-password -email EMAIL            - email a password reset link")
	fmt.Fprintln(cli.out, "  reset-password -uid UID -token TOKEN    - set a new password from a reset link")
	fmt.Fprintln(cli.out, "  categories list|create|update|delete    - manage categories")
	fmt.Fprintln(cli.out, "  courses list|create|update|delete       - manage courses")
	fmt.Fprintln(cli.out, "  lessons list|create|update|delete       - manage lessons")
	fmt.Fprintln(cli.out, "  blocks list|template|add|edit|delete|move - manage the content blocks of a lesson")
	fmt.Fprintln(cli.out, "  videos list|upload|delete               - manage videos")
	fmt.Fprintln(cli.out, "  analytics                               - show the dashboard figures")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                  - run a goose command on the session database")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd, rest := args[1], args[2:]
	switch cmd {
	case "login":
		return cli.login(ctx, rest)
	case "forgot-password":
		return cli.forgotPassword(ctx, rest)
	case "reset-password":
		return cli.resetPassword(ctx, rest)
	case "logout":
		return cli.logout(ctx)
	case "migrate":
		if len(rest) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, rest)
	}

	var handler func(ctx context.Context, args []string) error
	switch cmd {
	case "whoami":
		handler = cli.whoami
	case "categories":
		handler = cli.categories
	case "courses":
		handler = cli.courses
	case "lessons":
		handler = cli.lessons
	case "blocks":
		handler = cli.blocks
	case "videos":
		handler = cli.videos
	case "analytics":
		handler = cli.analytics
	default:
		cli.printUsage()
		return errHelp
	}
	if err := cli.authorize(ctx, "/"+cmd); err != nil {
		return err
	}
	return handler(ctx, rest)
}

// authorize passes the auth guard, refreshing the session if needed.
func (cli *commandLine) authorize(ctx context.Context, path string) error {
	d := cli.guard.Check(ctx, path)
	switch d.State {
	case auth.StateAuthenticated:
		return nil
	case auth.StateChecking:
		return errors.Wrap(ctx.Err(), "checking session")
	default:
		return errNotSignedIn
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// subcommand splits `args` into the sub-command name and its arguments.
func (cli *commandLine) subcommand(cmd string, args []string, subs ...string) (string, []string, error) {
	if len(args) > 0 {
		for _, s := range subs {
			if args[0] == s {
				return s, args[1:], nil
			}
		}
	}
	fmt.Fprintf(cli.out, "Usage: %s", cmd)
	for i, s := range subs {
		sep := "|"
		if i == 0 {
			sep = " "
		}
		fmt.Fprint(cli.out, sep+s)
	}
	fmt.Fprintln(cli.out)
	return "", nil, errHelp
}

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) promptPassword(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
