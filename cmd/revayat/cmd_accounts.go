package main

import (
	"io"

	"revayat/internal/models"
	"revayat/internal/social"

	"github.com/spf13/cobra"
)

func (c *cli) registerCmd() *cobra.Command {
	var in social.RegisterInput
	var gender string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Gender = models.Gender(gender)
			_, err := c.session.Accounts.Register(cmd.Context(), in)
			return c.report(cmd, models.ResultOf(err).WithMessage("حساب کاربری ساخته شد."))
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "unique username")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number (unique)")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	cmd.Flags().StringVar(&gender, "gender", string(models.GenderFemale), "female or male")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with phone and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, err := c.session.Accounts.Login(cmd.Context(), phone, password)
			return c.report(cmd, models.ResultOf(err).WithMessage("خوش آمدید، "+acc.Username))
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.session.Accounts.Logout(cmd.Context())
			return c.report(cmd, models.ResultOf(nil).WithMessage("از حساب خارج شدید."))
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, err := c.currentUser()
			if err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			return c.show(cmd, acc, func(w io.Writer) {
				writeAccounts(w, []models.Account{acc})
			})
		},
	}
}

func (c *cli) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts (admin only)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.requireAdmin(); err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			accounts := c.session.Accounts.Accounts()
			return c.show(cmd, accounts, func(w io.Writer) { writeAccounts(w, accounts) })
		},
	}

	adminAction := func(use, short, done string, op func(cmd *cobra.Command, id string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <account-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := c.requireAdmin(); err != nil {
					return c.report(cmd, models.ResultOf(err))
				}
				return c.report(cmd, models.ResultOf(op(cmd, args[0])).WithMessage(done))
			},
		}
	}

	cmd.AddCommand(
		list,
		adminAction("delete", "Delete an account", "حساب کاربری حذف شد.", func(cmd *cobra.Command, id string) error {
			return c.session.Accounts.DeleteAccount(cmd.Context(), id)
		}),
		adminAction("promote", "Grant the admin role", social.MsgPromoted, func(cmd *cobra.Command, id string) error {
			return c.session.Accounts.PromoteToAdmin(cmd.Context(), id)
		}),
		adminAction("demote", "Revoke the admin role", social.MsgDemoted, func(cmd *cobra.Command, id string) error {
			return c.session.Accounts.DemoteFromAdmin(cmd.Context(), id)
		}),
	)
	return cmd
}
