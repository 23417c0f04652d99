package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core/lms"
)

func (cli *commandLine) forgotPassword(ctx context.Context, args []string) error {
	fs := cli.flagSet("forgot-password")
	email := fs.String("email", "", "The account email. A reset link will be sent to it.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}
	if err := cli.api.ForgotPassword(ctx, lms.ForgotPassword{Email: *email}); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "If an account exists for this email, a password reset link was sent to it.")
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, args []string) error {
	fs := cli.flagSet("reset-password")
	uid := fs.String("uid", "", "The uid of the reset link.")
	token := fs.String("token", "", "The token of the reset link. The new password will be prompted next.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *uid == "" || *token == "" {
		fs.Usage()
		return errHelp
	}

	pwd, err := cli.promptPassword("Enter new password:")
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}
	confirm, err := cli.promptPassword("Confirm new password:")
	if err != nil {
		return err
	}

	rp := lms.ResetPassword{UID: *uid, Token: *token, Password: pwd, PasswordConfirm: confirm}
	if err := cli.api.ResetPassword(ctx, rp); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Password reset, you can now sign in.")
	return nil
}
