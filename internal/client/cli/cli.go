package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/auth"
	"github.com/iudanet/livedesk/internal/client/iocli"
	"github.com/iudanet/livedesk/internal/client/realtime"
	"github.com/iudanet/livedesk/internal/client/storage"
	clientsync "github.com/iudanet/livedesk/internal/client/sync"
	"github.com/iudanet/livedesk/internal/models"
)

// ErrUnknownCommand неизвестная команда
var ErrUnknownCommand = errors.New("unknown command")

// SubscriberFactory создает realtime подписчика для текущей сессии
type SubscriberFactory func(baseURL string, session *storage.AuthData) clientsync.Subscriber

// Deps зависимости терминального клиента
type Deps struct {
	APIClient  *api.Client
	Auth       *auth.Service
	ViewState  storage.ViewStateStorage
	Snapshots  storage.SnapshotStorage
	Subscriber SubscriberFactory // nil отключает realtime
	Debounce   time.Duration
}

type Cli struct {
	io          iocli.IO
	apiClient   *api.Client
	authService *auth.Service
	viewState   storage.ViewStateStorage
	snapshots   storage.SnapshotStorage
	subscriber  SubscriberFactory
	logger      *slog.Logger
	debounce    time.Duration
}

func New(logger *slog.Logger, io iocli.IO, deps Deps) *Cli {
	return &Cli{
		io:          io,
		apiClient:   deps.APIClient,
		authService: deps.Auth,
		viewState:   deps.ViewState,
		snapshots:   deps.Snapshots,
		subscriber:  deps.Subscriber,
		logger:      logger,
		debounce:    deps.Debounce,
	}
}

// RealtimeSubscriber подписывается на события через websocket сервера
func RealtimeSubscriber(logger *slog.Logger) SubscriberFactory {
	return func(baseURL string, session *storage.AuthData) clientsync.Subscriber {
		client := realtime.NewClient(logger, baseURL, session.AccessToken, session.TenantID)
		return clientsync.SubscriberFunc(func(ctx context.Context, collection models.Collection) (clientsync.Subscription, error) {
			sub, err := client.Subscribe(ctx, collection)
			if err != nil {
				return nil, err
			}
			return sub, nil
		})
	}
}

// Run выполняет команду. args содержит аргументы после имени команды.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "watch":
		return c.runWatch(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "reorder":
		return c.runReorder(ctx, args)
	case "send":
		return c.runSend(ctx, args)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// session возвращает активную сессию с понятной пользователю ошибкой
func (c *Cli) session(ctx context.Context) (*storage.AuthData, error) {
	session, err := c.authService.Session(ctx)
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		return nil, fmt.Errorf("not authenticated. Please run 'livedesk login' first")
	case errors.Is(err, auth.ErrSessionExpired):
		return nil, fmt.Errorf("session expired. Please run 'livedesk login' again")
	case err != nil:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

func (c *Cli) PrintUsage() {
	c.io.Println("LiveDesk Client")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  livedesk [OPTIONS] COMMAND")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  --version              Show version information")
	c.io.Println("  --config PATH          Path to YAML config file")
	c.io.Println("  --server URL           Server URL (default: http://localhost:8080)")
	c.io.Println("  --db PATH              Path to local database (default: livedesk-client.db)")
	c.io.Println("  --debounce DURATION    Quiet period before search requests (default: 500ms)")
	c.io.Println("  --log-level LEVEL      debug, info, warn or error (default: warn)")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  login                          Login to server")
	c.io.Println("  logout                         Logout from server")
	c.io.Println("  status                         Show session and offline connections")
	c.io.Println("  watch <collection> [--search TEXT] [--once]")
	c.io.Println("                                 Live view of tickets, chats, tags, contacts or connections")
	c.io.Println("  delete <collection> <id>       Delete record")
	c.io.Println("  reorder <id> [<id>...]         Save tag order (first id gets order 1)")
	c.io.Println("  send <chat-id> <text>...       Post message to chat")
	c.io.Println()
	c.io.Println("Examples:")
	c.io.Println("  livedesk login")
	c.io.Println("  livedesk watch chats")
	c.io.Println("  livedesk watch tags --search urg --once")
	c.io.Println("  livedesk send 7 on my way")
	c.io.Println("  livedesk --server https://desk.example.com delete tickets 42")
}
