package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core/lms"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.flagSet("login")
	email := fs.String("email", "", "The account email. The password will be prompted next.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	pwd, err := cli.promptPassword("Enter password:")
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}

	tokens, err := cli.api.SignIn(ctx, lms.SignIn{Email: *email, Password: pwd})
	if err != nil {
		return err
	}
	cli.logger.Info("signed in", tokens.User)
	fmt.Fprintf(cli.out, "Signed in as %s.\n", displayName(tokens.User))
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if err := cli.session.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Signed out.")
	return nil
}

func (cli *commandLine) whoami(ctx context.Context, _ []string) error {
	usr := cli.session.User()
	if usr == nil {
		return errNotSignedIn
	}
	fmt.Fprintln(cli.out, displayName(*usr))
	if exp, ok := cli.session.ExpiresAt(); ok {
		fmt.Fprintf(cli.out, "session valid until %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
	if cli.session.IsSuperuser() {
		fmt.Fprintln(cli.out, "superuser")
	}
	return nil
}

func displayName(u lms.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", name, u.Email)
}
