package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/storage"
	clientsync "github.com/iudanet/livedesk/internal/client/sync"
	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/internal/validation"
)

type watchOptions struct {
	collection models.Collection
	search     string
	searchSet  bool
	once       bool
}

func parseWatchArgs(args []string) (watchOptions, error) {
	var opts watchOptions

	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.StringP("search", "s", "", "search filter")
	fs.BoolVar(&opts.once, "once", false, "print first page and exit")

	if err := fs.Parse(args); err != nil {
		return opts, fmt.Errorf("invalid watch arguments: %w", err)
	}
	if fs.NArg() != 1 {
		return opts, fmt.Errorf("usage: livedesk watch <collection> [--search TEXT] [--once]")
	}

	collection, err := validation.ValidateCollection(fs.Arg(0))
	if err != nil {
		return opts, err
	}
	opts.collection = collection

	if fs.Changed("search") {
		normalized, err := validation.NormalizeSearch(*search)
		if err != nil {
			return opts, err
		}
		opts.search = normalized
		opts.searchSet = true
	}
	return opts, nil
}

func (c *Cli) runWatch(ctx context.Context, args []string) error {
	opts, err := parseWatchArgs(args)
	if err != nil {
		return err
	}

	session, err := c.session(ctx)
	if err != nil {
		return err
	}

	if !opts.searchSet {
		opts.search = c.restoreSearch(ctx, opts.collection)
	}

	switch opts.collection {
	case models.CollectionTags:
		return watch(ctx, c, session, opts, view[models.Tag]{
			line:     tagLine,
			renumber: models.RenumberTags,
			reorder: func(ctx context.Context, tags []models.Tag) error {
				return c.apiClient.ReorderTags(ctx, session.AccessToken, tagOrders(tags))
			},
		})
	case models.CollectionChats:
		return watch(ctx, c, session, opts, view[models.Chat]{
			line:    chatLine(session.UserID),
			summary: unreadSummary(session.UserID),
		})
	case models.CollectionTickets:
		return watch(ctx, c, session, opts, view[models.Ticket]{line: ticketLine})
	case models.CollectionContacts:
		return watch(ctx, c, session, opts, view[models.Contact]{line: contactLine})
	case models.CollectionConnections:
		return watch(ctx, c, session, opts, view[models.Connection]{
			line:    connectionLine,
			summary: offlineSummary,
		})
	default:
		return fmt.Errorf("collection %s cannot be watched", opts.collection)
	}
}

func (c *Cli) restoreSearch(ctx context.Context, collection models.Collection) string {
	state, err := c.viewState.GetViewState(ctx, collection)
	if err != nil {
		if !errors.Is(err, storage.ErrViewStateNotFound) {
			c.logger.Warn("Failed to load view state", "collection", collection, "error", err)
		}
		return ""
	}
	return state.Search
}

func (c *Cli) saveViewState(ctx context.Context, collection models.Collection, state clientsync.State) {
	vs := &storage.ViewState{Search: state.Search, PageNumber: state.PageNumber}
	if err := c.viewState.SaveViewState(ctx, collection, vs); err != nil {
		c.logger.Warn("Failed to save view state", "collection", collection, "error", err)
	}
}

// watch показывает коллекцию и держит ее в актуальном состоянии до выхода
func watch[T models.Item](ctx context.Context, c *Cli, session *storage.AuthData, opts watchOptions, v view[T]) error {
	source := api.NewCollection[T](c.apiClient, opts.collection, session.AccessToken)
	loaded := make(chan struct{}, 1)

	feedOpts := clientsync.Options[T]{
		Store:    c.snapshots,
		Deleter:  source,
		Renumber: v.renumber,
		Reorder:  v.reorder,
		Debounce: c.debounce,
		Search:   opts.search,
		OnLoad: func(clientsync.State) {
			select {
			case loaded <- struct{}{}:
			default:
			}
		},
	}
	if !opts.once {
		feedOpts.OnChange = func(items []T) {
			c.io.Printf("--- %s (%d) ---\n%s", opts.collection, len(items), v.render(items))
		}
		if c.subscriber != nil {
			feedOpts.Subscriber = c.subscriber(c.apiClient.BaseURL(), session)
		}
	}

	feed := clientsync.NewFeed(c.logger, opts.collection, source, feedOpts)

	runCtx, cancel := context.WithCancel(ctx)
	go feed.Run(runCtx)
	defer func() {
		cancel()
		<-feed.Done()
		c.saveViewState(context.WithoutCancel(ctx), opts.collection, feed.State())
	}()

	if opts.once {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-feed.Notifications():
			return fmt.Errorf("failed to load %s: %w", opts.collection, n.Err)
		case <-loaded:
		}

		state := feed.State()
		items := feed.Items()
		c.io.Printf("=== %s (search: %q, %d item(s)) ===\n", opts.collection, state.Search, len(items))
		c.io.Printf("%s", v.render(items))
		if state.HasMore {
			c.io.Println("More items available.")
		}
		return nil
	}

	return interact(ctx, c, feed, v)
}

// interact читает команды пользователя и печатает уведомления ленты
func interact[T models.Item](ctx context.Context, c *Cli, feed *clientsync.Feed[T], v view[T]) error {
	c.io.Println("Type 'help' for commands.")

	readCtx, stop := context.WithCancel(ctx)
	defer stop()

	lines := make(chan string)
	inputErr := make(chan error, 1)
	go func() {
		for {
			line, err := c.io.ReadInput("")
			if err != nil {
				inputErr <- err
				return
			}
			select {
			case lines <- line:
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-inputErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		case n := <-feed.Notifications():
			c.io.Printf("! %s\n", n)
			if n.Kind == clientsync.SubscriptionDrop {
				c.io.Println("  Live updates stopped. Type 'resub' to reconnect.")
			}
		case line := <-lines:
			if quit := handleWatchCommand(ctx, c, feed, v, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func handleWatchCommand[T models.Item](ctx context.Context, c *Cli, feed *clientsync.Feed[T], v view[T], line string) bool {
	fields := strings.Fields(line)
	switch {
	case line == "":
	case strings.HasPrefix(line, "/"):
		search, err := validation.NormalizeSearch(strings.TrimPrefix(line, "/"))
		if err != nil {
			c.io.Printf("Error: %v\n", err)
			break
		}
		feed.SetSearch(search)
	case fields[0] == "q" || fields[0] == "quit" || fields[0] == "exit":
		return true
	case fields[0] == "help":
		printWatchHelp(c)
	case fields[0] == "more":
		if st := feed.State(); !st.HasMore {
			c.io.Println("No more items.")
			break
		}
		feed.LoadMore()
	case fields[0] == "refresh":
		feed.Refresh()
	case fields[0] == "resub":
		feed.Resubscribe()
	case fields[0] == "state":
		st := feed.State()
		c.io.Printf("search=%q page=%d more=%t loading=%t live=%t\n", st.Search, st.PageNumber, st.HasMore, st.Loading, st.Subscribed)
	case fields[0] == "del" && len(fields) == 2:
		id, err := parseID(fields[1])
		if err != nil {
			c.io.Printf("Error: %v\n", err)
			break
		}
		if err := feed.Delete(ctx, id); err != nil {
			c.io.Printf("Error: %v\n", err)
		}
	case fields[0] == "mv" && len(fields) == 3:
		if v.reorder == nil {
			c.io.Println("Error: this collection has no manual order")
			break
		}
		from, errFrom := strconv.Atoi(fields[1])
		to, errTo := strconv.Atoi(fields[2])
		size := len(feed.Items())
		if errFrom != nil || errTo != nil || from < 1 || to < 1 || from > size || to > size {
			c.io.Printf("Error: positions must be between 1 and %d\n", size)
			break
		}
		feed.Move(from-1, to-1)
	default:
		c.io.Printf("Unknown command: %s\n", line)
	}
	return false
}

func printWatchHelp(c *Cli) {
	c.io.Println("Commands:")
	c.io.Println("  /TEXT        search by name, '/' clears the search")
	c.io.Println("  more         load next page")
	c.io.Println("  refresh      reload from the first page")
	c.io.Println("  del ID       delete record")
	c.io.Println("  mv FROM TO   move tag (positions start at 1)")
	c.io.Println("  resub        reconnect live updates")
	c.io.Println("  state        show search and page")
	c.io.Println("  q            quit")
}
