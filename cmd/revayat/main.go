// Command revayat is a terminal client for the revayat social state: it keeps
// a device session in local storage and drives every store operation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"revayat/internal/bootstrap"
	"revayat/internal/config"
	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/social"

	"github.com/spf13/cobra"
)

// sessionOpener builds the session a command runs against and returns the
// function that releases its resources.
type sessionOpener func(ctx context.Context) (*social.Session, func() error, error)

// cli holds the state shared by every command.
type cli struct {
	open    sessionOpener
	session *social.Session
	release func() error

	jsonOutput bool
	offline    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := execute(ctx, &cli{open: openFromConfig}, os.Args[1:], os.Stdout)
	if err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// execute runs one command line and always releases the session, including
// when the command fails.
func execute(ctx context.Context, c *cli, args []string, out io.Writer) error {
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	err := root.ExecuteContext(ctx)
	if cerr := c.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func openFromConfig(ctx context.Context) (*social.Session, func() error, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	observability.Logger = observability.NewLogger(cfg.Env, os.Stderr)

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Namespace: "device"})
	if err != nil {
		return nil, nil, err
	}
	session := social.NewSession(ctx, social.Options{
		Storage: rt.Storage,
		Remote:  rt.Remote,
		Logger:  observability.Logger,
	})
	return session, rt.Close, nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "revayat",
		Short:         "revayat social client",
		Long:          "Browse and share posts and stories from the terminal. State is kept on this device and synced with the remote collaborator when one is configured.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			session, release, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.session, c.release = session, release
			if !c.offline {
				session.Start()
				session.Wait()
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVar(&c.offline, "offline", false, "skip the initial remote fetch")

	root.AddCommand(
		c.registerCmd(), c.loginCmd(), c.logoutCmd(), c.whoamiCmd(),
		c.accountsCmd(),
		c.postCmd(),
		c.storyCmd(),
		c.followCmd(), c.followersCmd(), c.followingCmd(),
		c.saveCmd(), c.savedCmd(),
	)
	return root
}

// close flushes background pushes and uploads before releasing storage.
func (c *cli) close() error {
	if c.session == nil {
		return nil
	}
	c.session.Wait()
	c.session.Close()
	c.session = nil
	if c.release != nil {
		return c.release()
	}
	return nil
}

// currentUser returns the signed-in account or an unauthenticated error.
func (c *cli) currentUser() (models.Account, error) {
	acc, ok := c.session.Accounts.CurrentUser()
	if !ok {
		return models.Account{}, models.NewUnauthenticatedError("ابتدا وارد حساب کاربری شوید.")
	}
	return acc, nil
}

// requireAdmin returns the signed-in account when it has the admin role.
func (c *cli) requireAdmin() (models.Account, error) {
	acc, err := c.currentUser()
	if err != nil {
		return acc, err
	}
	if !acc.IsAdmin() {
		return acc, models.NewForbiddenError("این بخش فقط برای مدیران در دسترس است.")
	}
	return acc, nil
}
