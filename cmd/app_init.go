package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanctuari/rfq-cli/internal/auth"
	"github.com/sanctuari/rfq-cli/internal/catalog"
	"github.com/sanctuari/rfq-cli/internal/distribution"
	"github.com/sanctuari/rfq-cli/internal/fetcher"
	"github.com/sanctuari/rfq-cli/internal/mailer"
	"github.com/sanctuari/rfq-cli/internal/onboarding"
	"github.com/sanctuari/rfq-cli/internal/payment"
	"github.com/sanctuari/rfq-cli/internal/registry"
	"github.com/sanctuari/rfq-cli/internal/resilience"
	"github.com/sanctuari/rfq-cli/internal/server"
	"github.com/sanctuari/rfq-cli/internal/store"
	"github.com/sanctuari/rfq-cli/internal/submission"
	"github.com/sanctuari/rfq-cli/internal/wizard"
	"github.com/sanctuari/rfq-cli/pkg/notion"
)

// appEnv holds everything the serve command wires together.
type appEnv struct {
	Store  store.Store
	Redis  *redis.Client // nil when signups are cached in memory
	Server *server.Server
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func initCatalog() (*catalog.Catalog, error) {
	return catalog.Load(cfg.Catalog.Path)
}

// initLoader builds the question-set loader with file, HTTP and, when a
// token is configured, Notion sources.
func initLoader(cat *catalog.Catalog) *registry.Loader {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     time.Duration(cfg.Questions.TimeoutSecs) * time.Second,
		DefaultRate: rate.Limit(cfg.Questions.RatePerSecond),
	})
	opts := []registry.LoaderOption{registry.WithHTTPSource(registry.NewHTTPSource(httpFetcher))}
	if cfg.Notion.Token != "" {
		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RatePerSecond))
		opts = append(opts, registry.WithNotionSource(registry.NewNotionSource(client)))
	}
	return registry.NewLoader(cat, cfg.Questions.Dir, opts...)
}

func initMailer(ctx context.Context) (mailer.Sender, error) {
	switch cfg.Mail.Provider {
	case "smtp":
		return mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.Mail.From), nil
	case "ses":
		return mailer.NewSESSender(ctx, cfg.SES.Region, cfg.Mail.From)
	default:
		zap.L().Warn("mail provider is log; emails will not be delivered")
		return mailer.LogSender{}, nil
	}
}

func initGateway() payment.Gateway {
	if cfg.Payment.ServerKey == "" {
		zap.L().Warn("payment.server_key not set; only free RFQs can be submitted")
		return payment.Disabled{}
	}
	return payment.NewMidtransGateway(payment.MidtransOptions{
		ServerKey:  cfg.Payment.ServerKey,
		Production: cfg.Payment.Production,
		FinishURL:  cfg.Payment.FinishURL,
		Breaker:    resilience.DefaultCircuitBreakerConfig(),
	})
}

// initSignupCache returns a Redis-backed cache when redis.addr is set.
func initSignupCache(ctx context.Context) (auth.PayloadCache, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return auth.NewMemoryPayloadCache(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, eris.Wrap(err, "ping redis")
	}
	return auth.NewRedisPayloadCache(client), client, nil
}

// initApp opens the store, migrates it and builds the HTTP server.
// Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate("serve"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cat, err := initCatalog()
	if err != nil {
		env.Close()
		return nil, err
	}
	loader := initLoader(cat)

	mail, err := initMailer(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}

	signups, rdb, err := initSignupCache(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Redis = rdb

	tokens := auth.NewTokens(cfg.Auth.Secret,
		time.Duration(cfg.Auth.LinkTTLMins)*time.Minute,
		time.Duration(cfg.Auth.SessionTTLHours)*time.Hour,
	)
	authSvc := auth.NewService(tokens, st, signups, mail, auth.ServiceOptions{
		CallbackURL: cfg.Auth.CallbackURL,
		SignupTTL:   time.Duration(cfg.Auth.SignupTTLMins) * time.Minute,
	})

	dispatcher := submission.NewDispatcher(st, initGateway(), submission.Options{Fee: cfg.Payment.Fee})
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)

	env.Server = server.New(cfg.Server, server.Deps{
		Catalog:     cat,
		Loader:      loader,
		Wizards:     wizard.NewSessions(time.Duration(cfg.Server.WizardTTLMins)*time.Minute, loader, dispatcher),
		Submissions: dispatcher,
		Auth:        authSvc,
		Onboarding:  onboarding.NewService(st, tokens),
		Distribution: distribution.NewService(st, mail, distribution.Options{
			BaseURL:       cfg.Server.BaseURL,
			Concurrency:   cfg.Distribution.Concurrency,
			RatePerSecond: cfg.Distribution.RatePerSecond,
			Retry:         retry,
		}),
		Records: st,
	})

	zap.L().Info("app initialized",
		zap.String("store", cfg.Store.Driver),
		zap.Int("products", cat.Len()),
		zap.String("mail", cfg.Mail.Provider),
		zap.Bool("redis", rdb != nil),
	)
	return env, nil
}
