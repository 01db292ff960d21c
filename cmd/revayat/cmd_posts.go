package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"revayat/internal/models"
	"revayat/internal/social"

	"github.com/spf13/cobra"
)

// imageArg turns a local image file into an inline data URL; any other value
// (a hosted URL or an existing data URL) is used as is.
func imageArg(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "data:") || strings.Contains(value, "://") {
		return value, nil
	}
	// #nosec G304: path comes from the user running the CLI
	raw, err := os.ReadFile(value)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", value, err)
	}
	mime := http.DetectContentType(raw)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", value, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func (c *cli) postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Browse and share explore posts",
	}
	cmd.AddCommand(
		c.postListCmd(), c.postShowCmd(), c.postCreateCmd(), c.postEditCmd(),
		c.postDeleteCmd(), c.postLikeCmd(), c.postCommentCmd(), c.postThreadCmd(),
	)
	return cmd
}

func (c *cli) viewerID() string {
	if acc, ok := c.session.Accounts.CurrentUser(); ok {
		return acc.ID
	}
	return ""
}

func (c *cli) postListCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List explore posts, newest user posts first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts := c.session.Posts.Posts()
			if author != "" {
				posts = c.session.Posts.PostsByAuthor(author)
			}
			viewer := c.viewerID()
			return c.show(cmd, posts, func(w io.Writer) { writePosts(w, posts, viewer) })
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "only posts by this account id")
	return cmd
}

func (c *cli) postShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			post, ok := c.session.Posts.Post(args[0])
			if !ok {
				return c.report(cmd, models.ResultOf(models.NewNotFoundError("پست")))
			}
			return c.show(cmd, post, func(w io.Writer) {
				fmt.Fprintf(w, "%s\t%s\n", post.AuthorName, formatTime(post.CreatedAt))
				fmt.Fprintln(w, post.Image)
				fmt.Fprintln(w, post.Caption)
				fmt.Fprintf(w, "%d likes\t%d comments\n", len(post.Likes), len(post.Comments))
			})
		},
	}
}

func (c *cli) postCreateCmd() *cobra.Command {
	var image, caption string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Share a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, _ := c.session.Accounts.CurrentUser()
			img, err := imageArg(image)
			if err != nil {
				return err
			}
			post, err := c.session.Posts.CreatePost(cmd.Context(), social.CreatePostInput{
				AuthorID:   acc.ID,
				AuthorName: displayName(acc),
				Image:      img,
				Caption:    caption,
			})
			return c.report(cmd, models.ResultOf(err).WithMessage("پست منتشر شد: "+post.ID))
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image file, URL or data URL")
	cmd.Flags().StringVar(&caption, "caption", "", "caption")
	return cmd
}

func (c *cli) postEditCmd() *cobra.Command {
	var image, caption string
	cmd := &cobra.Command{
		Use:   "edit <post-id>",
		Short: "Edit the caption and optionally the image of your post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imageArg(image)
			if err != nil {
				return err
			}
			err = c.session.Posts.UpdatePost(cmd.Context(), social.UpdatePostInput{
				PostID:   args[0],
				AuthorID: c.viewerID(),
				Caption:  caption,
				Image:    img,
			})
			return c.report(cmd, models.ResultOf(err).WithMessage("پست ویرایش شد."))
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "replacement image file, URL or data URL")
	cmd.Flags().StringVar(&caption, "caption", "", "new caption")
	return cmd
}

func (c *cli) postDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete your post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.session.Posts.DeletePost(cmd.Context(), social.DeletePostInput{PostID: args[0], AuthorID: c.viewerID()})
			return c.report(cmd, models.ResultOf(err).WithMessage("پست حذف شد."))
		},
	}
}

func (c *cli) postLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like or unlike a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			liked, err := c.session.Posts.ToggleLike(cmd.Context(), social.LikeInput{PostID: args[0], UserID: c.viewerID()})
			return c.report(cmd, models.LikeResult(liked, err))
		},
	}
}

func (c *cli) postCommentCmd() *cobra.Command {
	var body, parent string
	cmd := &cobra.Command{
		Use:   "comment <post-id>",
		Short: "Comment on a post or reply to a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, _ := c.session.Accounts.CurrentUser()
			comment, err := c.session.Posts.AddComment(cmd.Context(), social.CommentInput{
				PostID:     args[0],
				UserID:     acc.ID,
				AuthorName: displayName(acc),
				Body:       body,
				ParentID:   parent,
			})
			return c.report(cmd, models.ResultOf(err).WithMessage("دیدگاه ثبت شد: "+comment.ID))
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "comment text")
	cmd.Flags().StringVar(&parent, "parent", "", "comment id to reply to")
	return cmd
}

func (c *cli) postThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <post-id>",
		Short: "Show the comment thread of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := c.session.Posts.Thread(args[0])
			if err != nil {
				return c.report(cmd, models.ResultOf(err))
			}
			nodes := social.BuildThread(groups)
			return c.show(cmd, nodes, func(w io.Writer) { writeThread(w, nodes, 0) })
		},
	}
}

func displayName(acc models.Account) string {
	if acc.FullName != "" {
		return acc.FullName
	}
	return acc.Username
}
