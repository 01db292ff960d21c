package main

import (
	"fmt"
	"io"

	"revayat/internal/models"

	"github.com/spf13/cobra"
)

// signInHint is shown when an operation opens the sign-in prompt.
const signInHint = "برای ادامه وارد شوید: revayat login --phone <شماره> --password <رمز>"

func (c *cli) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow <account-id>",
		Short: "Follow or unfollow an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			following, err := c.session.Follows.ToggleFollow(cmd.Context(), args[0])
			return c.report(cmd, models.FollowResult(following, err))
		},
	}
}

// targetOrSelf resolves an optional account argument to the signed-in user.
func (c *cli) targetOrSelf(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	acc, err := c.currentUser()
	return acc.ID, err
}

func (c *cli) followersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "followers [account-id]",
		Short: "List the followers of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.targetOrSelf(args)
			if err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			ids := c.session.Follows.Followers(id)
			return c.show(cmd, ids, func(w io.Writer) { writeIDs(w, ids) })
		},
	}
}

func (c *cli) followingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following [account-id]",
		Short: "List the accounts an account follows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.targetOrSelf(args)
			if err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			ids := c.session.Follows.Following(id)
			return c.show(cmd, ids, func(w io.Writer) { writeIDs(w, ids) })
		},
	}
}

func (c *cli) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <content-id>",
		Short: "Save or unsave a post or story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := c.session.Saves.ToggleSave(cmd.Context(), args[0])
			res := c.report(cmd, models.SaveResult(saved, err))
			if c.session.Saves.SignInPromptOpen() {
				if !c.jsonOutput {
					fmt.Fprintln(cmd.OutOrStdout(), signInHint)
				}
				c.session.Saves.CloseSignInPrompt()
			}
			return res
		},
	}
}

func (c *cli) savedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "List saved posts that still exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.currentUser(); err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			ids := c.session.Saves.SavedExisting(func(id string) bool {
				if _, ok := c.session.Posts.Post(id); ok {
					return true
				}
				_, ok := c.session.Stories.Story(id)
				return ok
			})
			return c.show(cmd, ids, func(w io.Writer) { writeIDs(w, ids) })
		},
	}
}
