package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iudanet/homekeeper/internal/client/api"
	"github.com/iudanet/homekeeper/internal/client/auth"
	"github.com/iudanet/homekeeper/internal/client/cli"
	"github.com/iudanet/homekeeper/internal/client/errlog"
	"github.com/iudanet/homekeeper/internal/client/health"
	"github.com/iudanet/homekeeper/internal/client/iocli"
	"github.com/iudanet/homekeeper/internal/client/queue"
	"github.com/iudanet/homekeeper/internal/client/realtime"
	"github.com/iudanet/homekeeper/internal/client/retry"
	"github.com/iudanet/homekeeper/internal/client/storage"
	"github.com/iudanet/homekeeper/internal/client/storage/boltdb"
	"github.com/iudanet/homekeeper/internal/client/syncer"
	"github.com/iudanet/homekeeper/internal/models"
	pkgapi "github.com/iudanet/homekeeper/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Platform URL")
	realtimeURL := flag.String("realtime", "", "Realtime endpoint (default: derived from --server)")
	dbPath := flag.String("db", "homekeeper-client.db", "Path to local database")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		stdio := iocli.NewStdio()
		stdio.Printf("Usage: homekeeper [OPTIONS] COMMAND\nRun 'homekeeper help' for details.\n")
		os.Exit(1)
	}
	command := args[0]

	// Контекст живёт до Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Локальное хранилище
	guardCfg := storage.DefaultGuardianConfig()
	kv, err := boltdb.New(ctx, *dbPath, guardCfg.QuotaBudgetBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Логи идут в stderr и, начиная с warn, в persisted ring
	logger, guard, sink := buildLogger(kv, guardCfg)

	// Клиент платформы и сессия
	apiClient := api.NewClient(*serverURL)
	authManager := auth.NewManager(auth.NewStore(guard), apiClient, logger)

	engine := retry.New(logger)
	monitor := health.New(authManager, nil, health.DefaultConfig(), logger)
	q := queue.New(guard, queue.DefaultConfig(), logger)
	replayer := syncer.New(q, authManager, logger)
	registerReplayHandlers(replayer, apiClient, authManager)

	// Realtime-канал нужен только в режиме наблюдения
	if command == "watch" {
		listener := realtime.New(monitor, engine, realtime.DefaultConfig(deriveRealtimeURL(*serverURL, *realtimeURL)), logger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("Realtime listener stopped", "error", err)
			}
		}()
	}

	c := cli.New(iocli.NewStdio(), authManager, monitor, q, replayer, sink, guard)
	if command == "help" {
		c.PrintUsage()
		return
	}
	c.Run(ctx, command, args[1:])
}

// registerReplayHandlers привязывает каждый разрешённый в офлайне вид
// действия к endpoint воспроизведения на платформе
func registerReplayHandlers(replayer *syncer.Replayer, apiClient api.ClientAPI, authManager *auth.Manager) {
	submit := func(ctx context.Context, action models.QueuedAction) error {
		token, err := authManager.AccessToken(ctx)
		if err != nil {
			return err
		}
		return apiClient.SubmitAction(ctx, token, &pkgapi.ActionRequest{
			Payload:   action.Payload,
			ClientRef: action.ID,
			Kind:      string(action.Kind),
			QueuedAt:  action.EnqueuedAt.Unix(),
		})
	}

	for _, kind := range []models.ActionKind{
		models.ActionCalendarEventCreate,
		models.ActionCalendarEventUpdate,
		models.ActionTaskCreate,
		models.ActionTaskComplete,
		models.ActionHabitTick,
		models.ActionNoteAppend,
	} {
		replayer.Register(kind, submit)
	}
}

func buildLogger(kv storage.KVStore, guardCfg storage.GuardianConfig) (*slog.Logger, *storage.Guardian, *errlog.Sink) {
	// Guardian для sink собирается на временном логгере: persisted ring
	// не должен логировать сам в себя
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	guard := storage.NewGuardian(kv, guardCfg, bootstrap)
	sink := errlog.NewSink(guard, errlog.DefaultConfig())

	handler := errlog.Fanout(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
		errlog.NewHandler(sink, slog.LevelWarn),
	)
	return slog.New(handler), guard, sink
}

// deriveRealtimeURL выводит websocket-адрес из адреса платформы,
// если он не задан явно
func deriveRealtimeURL(serverURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	url := serverURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return strings.TrimSuffix(url, "/") + "/api/v1/realtime"
}

func printVersion() {
	fmt.Printf("HomeKeeper Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
