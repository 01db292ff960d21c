package main

import (
	"fmt"
	"io"
	"time"

	"revayat/internal/models"
	"revayat/internal/social"

	"github.com/spf13/cobra"
)

func (c *cli) storyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Share and watch 24 hour stories",
	}
	cmd.AddCommand(
		c.storyListCmd(), c.storyAddCmd(), c.storyEditCmd(), c.storyDeleteCmd(),
		c.storyLikeCmd(), c.storyReplyCmd(), c.storyRepliesCmd(), c.storyPruneCmd(),
	)
	return cmd
}

func (c *cli) storyListCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live stories, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stories := c.session.Stories.Stories()
			if author != "" {
				stories = c.session.Stories.StoriesByAuthor(author)
			}
			now := time.Now()
			return c.show(cmd, stories, func(w io.Writer) { writeStories(w, stories, now) })
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "only stories by this account id")
	return cmd
}

func (c *cli) storyAddCmd() *cobra.Command {
	var media, caption string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Share a new story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, _ := c.session.Accounts.CurrentUser()
			m, err := imageArg(media)
			if err != nil {
				return err
			}
			story, err := c.session.Stories.AddStory(cmd.Context(), social.AddStoryInput{
				AuthorID:   acc.ID,
				AuthorName: displayName(acc),
				Media:      m,
				Caption:    caption,
			})
			return c.report(cmd, models.ResultOf(err).WithMessage("استوری منتشر شد: "+story.ID))
		},
	}
	cmd.Flags().StringVar(&media, "media", "", "image file, URL or data URL")
	cmd.Flags().StringVar(&caption, "caption", "", "optional caption")
	return cmd
}

func (c *cli) storyEditCmd() *cobra.Command {
	var media, caption string
	cmd := &cobra.Command{
		Use:   "edit <story-id>",
		Short: "Replace the media or caption of your story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := social.UpdateStoryInput{UserID: c.viewerID()}
			if cmd.Flags().Changed("media") {
				m, err := imageArg(media)
				if err != nil {
					return err
				}
				in.Media = &m
			}
			if cmd.Flags().Changed("caption") {
				in.Caption = &caption
			}
			err := c.session.Stories.UpdateStory(cmd.Context(), args[0], in)
			return c.report(cmd, models.ResultOf(err).WithMessage("استوری ویرایش شد."))
		},
	}
	cmd.Flags().StringVar(&media, "media", "", "replacement image file, URL or data URL")
	cmd.Flags().StringVar(&caption, "caption", "", "new caption")
	return cmd
}

func (c *cli) storyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <story-id>",
		Short: "Delete your story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.session.Stories.DeleteStory(cmd.Context(), args[0], c.viewerID())
			return c.report(cmd, models.ResultOf(err).WithMessage("استوری حذف شد."))
		},
	}
}

func (c *cli) storyLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <story-id>",
		Short: "Like or unlike a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			liked, err := c.session.Stories.ToggleStoryLike(cmd.Context(), args[0], c.viewerID())
			return c.report(cmd, models.LikeResult(liked, err))
		},
	}
}

func (c *cli) storyReplyCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "reply <story-id>",
		Short: "Send a private reply to the author of a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, _ := c.session.Accounts.CurrentUser()
			_, err := c.session.Stories.SendStoryReply(cmd.Context(), args[0], social.ReplyInput{
				UserID:   acc.ID,
				UserName: displayName(acc),
				Message:  message,
			})
			return c.report(cmd, models.ResultOf(err).WithMessage("پیام ارسال شد."))
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "reply text")
	return cmd
}

func (c *cli) storyRepliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replies <story-id>",
		Short: "Read the replies to your story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replies, err := c.session.Stories.Replies(args[0], c.viewerID())
			if err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			return c.show(cmd, replies, func(w io.Writer) {
				fmt.Fprintln(w, "FROM\tSENT\tMESSAGE")
				for _, r := range replies {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.FromName, formatTime(r.CreatedAt), oneLine(r.Message))
				}
			})
		},
	}
}

func (c *cli) storyPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop expired stories from local storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed := c.session.Stories.Prune(cmd.Context())
			return c.report(cmd, models.ResultOf(nil).WithMessage(fmt.Sprintf("%d استوری منقضی حذف شد.", removed)))
		},
	}
}
