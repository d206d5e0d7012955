package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/app"
	"github.com/Jerry0022/PYCO/internal/article"
	"github.com/Jerry0022/PYCO/internal/collection"
	"github.com/Jerry0022/PYCO/internal/docstore"
)

// Error codes reported by article commands.
const (
	ErrCodeOutOfRange    = "E_RANGE"
	ErrCodeIndexNotFound = "E_INDEX"
	ErrCodeStore         = "E_STORE"
)

// articleView is the printed form of an article.
type articleView struct {
	Pos       int    `json:"pos"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Author    string `json:"author,omitempty"`
	Published string `json:"published"`
}

func viewOf(pos int, a article.Article) articleView {
	return articleView{
		Pos:       pos,
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		Author:    a.Author,
		Published: a.Published.UTC().Format(time.RFC3339Nano),
	}
}

func viewsOf(items []article.Article) []articleView {
	views := make([]articleView, len(items))
	for i, a := range items {
		views[i] = viewOf(i, a)
	}
	return views
}

func writeViews(w io.Writer, views []articleView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "no articles")
		return
	}
	for _, v := range views {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.Pos, v.ID, v.Published, v.Title)
	}
}

// articles is the collection type every article command works on.
type articles = collection.Collection[article.Article]

// withArticles opens the store, hydrates the article collection and runs fn.
func withArticles(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App, c *articles) error) error {
	a, err := opts.openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx := commandContext(cmd)
	c, err := app.OpenCollection(ctx, a, article.Descriptor)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load articles", err)
	}
	return fn(ctx, a, c)
}

// collectionError reports err in the configured format and maps it to an
// exit code.
func collectionError(f *OutputFormatter, op string, err error) error {
	code := ErrCodeStore
	exit := ExitFailure
	switch {
	case errors.Is(err, collection.ErrOutOfRange):
		code, exit = ErrCodeOutOfRange, ExitCommandError
	case errors.Is(err, docstore.ErrIndexNotFound):
		code, exit = ErrCodeIndexNotFound, ExitCommandError
	}
	var details any
	var partial *collection.PartialError
	if errors.As(err, &partial) {
		details = map[string]any{"done": partial.Done}
	}
	if f.Format == "json" {
		f.Error(code, err.Error(), details)
	}
	return WrapExitError(exit, op+" failed", err)
}

func parsePosition(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q: not an integer", name, s))
	}
	return n, nil
}

// NewArticleCommand creates the article command group.
func NewArticleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Add, list, remove, move and search articles",
	}
	cmd.AddCommand(newArticleAddCommand(rootOpts))
	cmd.AddCommand(newArticleListCommand(rootOpts))
	cmd.AddCommand(newArticleRemoveCommand(rootOpts))
	cmd.AddCommand(newArticleMoveCommand(rootOpts))
	cmd.AddCommand(newArticleSearchCommand(rootOpts))
	return cmd
}

type articleAddOptions struct {
	Title     string
	Body      string
	Author    string
	Published string
	At        int
}

func newArticleAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &articleAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an article",
		Long: `Add an article at the end of the collection, or at --at.

Example:
  pyco article add --title "Hello" --body "First post"
  pyco article add --title "Pinned" --at 0 --published 2024-01-02T15:04:05Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var published time.Time
			if opts.Published != "" {
				t, err := time.Parse(time.RFC3339, opts.Published)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --published", err)
				}
				published = t
			}

			a, err := article.New(rootOpts.idGenerator(), article.Draft{
				Title:     opts.Title,
				Body:      opts.Body,
				Author:    opts.Author,
				Published: published,
			}, rootOpts.now())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid article", err)
			}

			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				pos := opts.At
				if pos < 0 {
					pos = c.Len()
				}
				if err := c.Insert(ctx, pos, a); err != nil {
					return collectionError(f, "add", err)
				}
				v := viewOf(pos, a)
				return f.Success(v, func(w io.Writer) {
					fmt.Fprintf(w, "added %s at %d\n", v.ID, v.Pos)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "article title (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "", "article body")
	cmd.Flags().StringVar(&opts.Author, "author", "", "article author")
	cmd.Flags().StringVar(&opts.Published, "published", "", "publication time, RFC 3339 (default now)")
	cmd.Flags().IntVar(&opts.At, "at", -1, "insert position (default append)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newArticleListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List articles in collection order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(_ context.Context, _ *app.App, c *articles) error {
				views := viewsOf(c.Items())
				return f.Success(views, func(w io.Writer) { writeViews(w, views) })
			})
		},
	}
}

func newArticleRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "rm <pos>",
		Short: "Remove articles starting at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition("position", args[0])
			if err != nil {
				return err
			}

			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				if err := c.Remove(ctx, pos, count); err != nil {
					return collectionError(f, "remove", err)
				}
				result := map[string]int{"removed": count, "remaining": c.Len()}
				return f.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "removed %d, %d remaining\n", count, c.Len())
				})
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of articles to remove")
	return cmd
}

func newArticleMoveCommand(rootOpts *RootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move articles and print the resulting order",
		Long: `Move --count articles from <from> to <to> and print the resulting order.

<to> is the destination index after the moved block has been taken out.
Moves reorder the collection in memory only; the store keeps its order.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePosition("from", args[0])
			if err != nil {
				return err
			}
			to, err := parsePosition("to", args[1])
			if err != nil {
				return err
			}

			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				if err := c.Move(ctx, from, to, count); err != nil {
					return collectionError(f, "move", err)
				}
				views := viewsOf(c.Items())
				return f.Success(views, func(w io.Writer) { writeViews(w, views) })
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of articles to move")
	return cmd
}

func newArticleSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var field, index string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search articles by exact field value or full-text index",
		Long: `Search articles.

--field matches articles whose field equals <term> exactly.
--index matches articles whose indexed text contains every word of <term>;
a trailing * makes the last word a prefix.

Example:
  pyco article search "Hello" --field title
  pyco article search "sync engi*" --index text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (field == "") == (index == "") {
				return NewExitError(ExitCommandError, "exactly one of --field or --index is required")
			}

			f := rootOpts.formatter(cmd)
			return withArticles(cmd, rootOpts, func(ctx context.Context, _ *app.App, c *articles) error {
				var (
					found []article.Article
					err   error
				)
				if field != "" {
					found, err = c.SearchExact(ctx, args[0], field)
				} else {
					found, err = c.SearchFullText(ctx, args[0], index)
				}
				if err != nil {
					return collectionError(f, "search", err)
				}

				// Positions refer to the current collection order.
				positions := make(map[string]int, c.Len())
				for i, id := range c.IDs() {
					positions[id] = i
				}
				views := make([]articleView, len(found))
				for i, a := range found {
					pos, ok := positions[a.ID]
					if !ok {
						pos = -1
					}
					views[i] = viewOf(pos, a)
				}
				return f.Success(views, func(w io.Writer) { writeViews(w, views) })
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "field to compare exactly")
	cmd.Flags().StringVar(&index, "index", "", "full-text index to search")
	return cmd
}
