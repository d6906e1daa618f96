package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/ogurasousui/feedback-survey/internal/adapters/grpc/handler"
	"github.com/ogurasousui/feedback-survey/internal/adapters/repository/tablestore"
	"github.com/ogurasousui/feedback-survey/internal/adapters/store/memory"
	pgstore "github.com/ogurasousui/feedback-survey/internal/adapters/store/postgres"
	"github.com/ogurasousui/feedback-survey/internal/adapters/store/sheets"
	"github.com/ogurasousui/feedback-survey/internal/core/admin"
	"github.com/ogurasousui/feedback-survey/internal/core/report"
	"github.com/ogurasousui/feedback-survey/internal/core/session"
	"github.com/ogurasousui/feedback-survey/internal/core/survey"
	"github.com/ogurasousui/feedback-survey/internal/core/tabular"
	"github.com/ogurasousui/feedback-survey/internal/platform/auth"
	"github.com/ogurasousui/feedback-survey/internal/platform/cache"
	"github.com/ogurasousui/feedback-survey/internal/platform/config"
	pg "github.com/ogurasousui/feedback-survey/internal/platform/db/postgres"
	"github.com/ogurasousui/feedback-survey/internal/platform/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, logger, openStore)
	stop()
	if err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type storeOpener func(ctx context.Context, cfg *config.Config) (tabular.Store, func(), error)

func run(ctx context.Context, logger *slog.Logger, open storeOpener) error {
	cfg, err := config.Load(config.EffectivePath(""))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, closeStore, err := open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer closeStore()

	if err := tablestore.EnsureSchema(ctx, store, logger); err != nil {
		return fmt.Errorf("initialize tables: %w", err)
	}

	repo := tablestore.NewRepository(store, cache.New(nil), tablestore.Options{
		EmployeesTTL: cfg.Cache.EmployeesTTL,
		QuestionsTTL: cfg.Cache.QuestionsTTL,
		Logger:       logger,
	})
	sessions := session.NewManager(cfg.Session.IdleTimeout, nil)

	var issuer admin.TokenIssuer
	if cfg.Admin.Enabled() {
		issuer = auth.NewSigner(cfg.Admin.TokenSecret)
	} else {
		slog.Warn("admin login disabled: admin.password_hash or admin.token_secret is empty")
	}
	adminSvc := admin.NewService(cfg.Admin.PasswordHash, issuer, cfg.Admin.TokenTTL)

	grpcServer := server.New(cfg.Server.ListenAddr, server.Services{
		Survey: handler.NewSurveyGrpcHandler(survey.NewService(repo, logger), sessions),
		Admin:  handler.NewAdminGrpcHandler(adminSvc, report.NewService(repo), sessions),
	}, logger)

	return grpcServer.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (tabular.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		id, err := sheets.ExtractSpreadsheetID(cfg.Store.Sheets.SpreadsheetURL)
		if err != nil {
			return nil, nil, err
		}
		var cred option.ClientOption
		if cfg.Store.Sheets.CredentialsJSON != "" {
			cred = option.WithCredentialsJSON([]byte(cfg.Store.Sheets.CredentialsJSON))
		} else {
			cred = option.WithCredentialsFile(cfg.Store.Sheets.CredentialsFile)
		}
		st, err := sheets.New(ctx, id, cred, option.WithScopes(sheets.Scope))
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	case config.BackendPostgres:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewStore(pool, pg.NewTransactionManager(pool)), pool.Close, nil
	case config.BackendMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
