package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"revayat/internal/models"
	"revayat/internal/social"

	"github.com/spf13/cobra"
)

// errRejected marks a command whose operation was refused. The refusal has
// already been printed.
var errRejected = errors.New("operation rejected")

// report prints the outcome of an operation.
func (c *cli) report(cmd *cobra.Command, res models.Result) error {
	out := cmd.OutOrStdout()
	if c.jsonOutput {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else if res.Success {
		msg := res.Message
		if msg == "" {
			msg = "انجام شد."
		}
		fmt.Fprintln(out, "✓", msg)
	} else {
		fmt.Fprintf(out, "✗ [%s] %s\n", res.Code, res.Message)
	}
	if !res.Success {
		return errRejected
	}
	return nil
}

// show prints v as JSON, or with text when JSON output is off.
func (c *cli) show(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if c.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(ts models.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(time.DateTime)
}

func writeAccounts(w io.Writer, accounts []models.Account) {
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tPHONE\tROLE\tCREATED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Username, a.FullName, a.Phone, a.Role, formatTime(a.CreatedAt))
	}
}

func writePosts(w io.Writer, posts []models.ExplorePost, viewerID string) {
	fmt.Fprintln(w, "ID\tAUTHOR\tLIKES\tCOMMENTS\tCAPTION")
	for _, p := range posts {
		likes := fmt.Sprint(len(p.Likes))
		if viewerID != "" && p.LikedBy(viewerID) {
			likes += "♥"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.AuthorName, likes, len(p.Comments), oneLine(p.Caption))
	}
}

func writeStories(w io.Writer, stories []models.Story, now time.Time) {
	fmt.Fprintln(w, "ID\tAUTHOR\tLIKES\tEXPIRES IN\tCAPTION")
	for _, s := range stories {
		left := s.ExpiresAt().Sub(now).Truncate(time.Minute)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.AuthorName, len(s.Likes), left, oneLine(s.Caption))
	}
}

func writeThread(w io.Writer, nodes []social.ThreadNode, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(w, "%s- %s: %s (%s)\n", strings.Repeat("  ", depth), n.Comment.AuthorName, oneLine(n.Comment.Body), n.Comment.ID)
		writeThread(w, n.Replies, depth+1)
	}
}

func writeIDs(w io.Writer, ids []string) {
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:59]) + "…"
	}
	return s
}
