package nineveh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/ElementGang/Nineveh/nineveh.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

var (
	structValidator = validator.New()

	defaultLogWriter io.Writer = os.Stdout
)

//nolint:gochecknoinits // gotta register the validators
func init() {
	structValidator.SetTagName("binding")
}

// Nineveh is the bot: it owns the Discord connection, the group record
// store and the lifecycle manager, and dispatches interactions to the
// command, component and modal handlers.
type Nineveh struct {
	config     *Config
	logger     *slog.Logger
	logHandler slog.Handler

	discord       *Discord
	webhookServer *DiscordWebhookServer

	store   GroupStore
	manager *GroupManager

	signalStop  chan struct{}
	signalReady chan struct{}
	runMu       sync.Mutex
	startedAt   time.Time

	session DiscordSessionHandler
}

// New assembles the bot from its configuration. The Discord session itself
// isn't opened until Run.
func New(config *Config) (*Nineveh, error) {
	b := &Nineveh{
		config:      config,
		signalReady: make(chan struct{}, 1),
	}

	b.logHandler = tint.NewHandler(
		defaultLogWriter, &tint.Options{
			Level:     config.LogLevel,
			AddSource: true,
		},
	)
	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	disc, err := newDiscord(config.Discord)
	if err != nil {
		return nil, err
	}

	disc.logger = slog.New(
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     config.Discord.LogLevel,
				AddSource: true,
			},
		),
	).With(loggerNameKey, "discord")

	b.discord = disc
	disc.bot = b

	return b, nil
}

func (b *Nineveh) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// RegisterSlashCommands pushes the application command set to Discord over
// REST, without opening a gateway connection.
func (b *Nineveh) RegisterSlashCommands(ctx context.Context) error {
	session, err := b.discord.newSession()
	if err != nil {
		return err
	}
	b.session = session
	b.discord.session = session
	return b.registerCommands(ctx)
}

// Stop triggers a graceful shutdown of a running bot.
func (b *Nineveh) Stop() {
	if b.signalStop != nil {
		select {
		case b.signalStop <- struct{}{}:
		default:
		}
	}
}

// Run connects to Discord, registers commands and serves interactions
// until ctx is canceled or Stop is called.
func (b *Nineveh) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.signalStop = make(chan struct{}, 1)
	b.startedAt = time.Now()
	logger := b.logger

	if err := b.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.signalStop:
			logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	session, err := b.discord.newSession()
	if err != nil {
		return err
	}
	b.session = session
	b.discord.session = session

	b.store = newLoggingStore(
		session.GroupStore(),
		b.discord.logger,
		b.config.Discord.RequestsPerSecond,
	)
	b.manager = NewGroupManager(b.store, logger, b.config.Discord.ApplicationID)

	removeHandlers := []func(){
		session.AddHandler(b.discord.handlerReady()),
		session.AddHandler(b.discord.handlerConnect()),
		session.AddHandler(b.discord.handlerDisconnect()),
		session.AddHandler(b.discord.handlerInteractionCreate(ctx)),
	}
	b.discord.discordgoRemoveHandlerFuncs = removeHandlers

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	if err = session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}

	if err = b.registerCommands(startCtx); err != nil {
		_ = session.Close()
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if b.config.Discord.WebhookServer.Enabled {
		webhookServer, e := newWebhookServer(
			groupCtx, b, b.config.Discord.WebhookServer,
		)
		if e != nil {
			_ = session.Close()
			return e
		}
		b.webhookServer = webhookServer
		group.Go(func() error {
			serveErr := webhookServer.Serve(groupCtx)
			if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				return serveErr
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		return b.shutdown(logger)
	})

	b.signalReady <- struct{}{}
	logger.InfoContext(ctx, "ready")

	return group.Wait()
}

// shutdown closes the gateway connection and, when running, the webhook
// server. Called once the runtime context is canceled.
func (b *Nineveh) shutdown(logger *slog.Logger) error {
	logger.Warn("shutting down")

	var errs []error

	for _, removeHandler := range b.discord.discordgoRemoveHandlerFuncs {
		removeHandler()
	}
	if err := b.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing discord session: %w", err))
	}

	if b.webhookServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(), b.config.ShutdownTimeout,
		)
		defer shutdownCancel()
		if err := b.webhookServer.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(
				errs,
				fmt.Errorf("error shutting down webhook server: %w", err),
			)
		}
	}

	logger.Warn("shutdown complete", "uptime", time.Since(b.startedAt))
	return errors.Join(errs...)
}
