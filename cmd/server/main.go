package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	accountmod "github.com/vivhq/viv/modules/account"
	billingmod "github.com/vivhq/viv/modules/billing"
	"github.com/vivhq/viv/pkg/auth"
	"github.com/vivhq/viv/pkg/authz"
	"github.com/vivhq/viv/pkg/billing"
	"github.com/vivhq/viv/pkg/config"
	"github.com/vivhq/viv/pkg/email"
	"github.com/vivhq/viv/pkg/httpserver"
	"github.com/vivhq/viv/pkg/logger"
	"github.com/vivhq/viv/pkg/pg"
	"github.com/vivhq/viv/pkg/redis"
	"github.com/vivhq/viv/pkg/requestid"
	"github.com/vivhq/viv/pkg/session"
)

type appConfig struct {
	Environment     string `env:"ENVIRONMENT" envDefault:"development"`
	BaseURL         string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	AppURL          string `env:"APP_URL" envDefault:"http://localhost:8080/app"`
	BillingProvider string `env:"BILLING_PROVIDER" envDefault:"stripe"`
	DevAuthBypass   bool   `env:"DEV_AUTH_BYPASS" envDefault:"false"`

	// AuthTokenSecret signs magic link tokens. Falls back to the first
	// session secret when unset so small deployments need one secret.
	AuthTokenSecret string `env:"AUTH_TOKEN_SECRET"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg     appConfig
		sessionCfg session.Config
		httpCfg    httpserver.Config
		pgCfg      pg.Config
		redisCfg   redis.Config
		emailCfg   email.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&sessionCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&emailCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "viv"),
		logger.WithExtractor(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	sessions, err := session.New(sessionCfg)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	tokenSecret := appCfg.AuthTokenSecret
	if tokenSecret == "" {
		tokenSecret = firstSecret(sessionCfg.Secret)
	}

	// Storage backends follow DATABASE_URL: postgres when set, process
	// memory otherwise.
	var (
		users         auth.UserStorage
		subscriptions billing.SubscriptionStorage
		healthchecks  []func(context.Context) error
	)
	if pgCfg.DatabaseURL != "" {
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		users = auth.NewPGStore(pool)
		subscriptions = billing.NewPGStore(pool)
		healthchecks = append(healthchecks, pg.Healthcheck(pool))
		log.InfoContext(ctx, "using postgres storage")
	} else {
		users = auth.NewMemoryStore()
		subscriptions = billing.NewMemoryStore()
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory storage")
	}

	var replay auth.ReplayGuard
	if redisCfg.ConnectionURL != "" {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		replay = auth.NewRedisReplayGuard(client)
		healthchecks = append(healthchecks, redis.Healthcheck(client))
	} else {
		replay = auth.NewMemoryReplayGuard()
	}

	sender, err := email.NewFromConfig(emailCfg)
	if err != nil {
		return fmt.Errorf("failed to create email sender: %w", err)
	}

	magicLinks, err := auth.NewMagicLinkService(users, replay,
		magicLinkSender(sender, appCfg.BaseURL), tokenSecret,
		auth.WithMagicLinkLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create magic link service: %w", err)
	}

	provider, err := newBillingProvider(appCfg.BillingProvider)
	if err != nil {
		return err
	}

	billingSvc, err := billing.NewService(subscriptions, provider, billing.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create billing service: %w", err)
	}

	// Route protection is bound once here; handlers only ever see the
	// guard's slots.
	guard := authz.NewGuard()
	authnCap := authz.AuthCapability(sessions, users)
	if appCfg.DevAuthBypass && appCfg.Environment != "production" {
		log.WarnContext(ctx, "DEV_AUTH_BYPASS enabled, all requests authenticate as the dev user")
		authnCap = authz.DevBypassCapability(&auth.User{
			ID:         "dev-user",
			Email:      "dev@localhost",
			IsVerified: true,
		})
	}
	guard.BindAuth(authnCap)
	guard.BindSubscription(authz.SubscriptionCapability(authnCap, billingSvc))

	accountSvc, err := accountmod.NewService(magicLinks, sessions, appCfg.AppURL,
		accountmod.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create account module: %w", err)
	}

	billingMod, err := billingmod.NewService(billingSvc, provider, guard, appCfg.AppURL,
		billingmod.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create billing module: %w", err)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	// Health stays first and unauthenticated so probes never depend on
	// the rest of the routing table.
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	r.Mount("/auth", accountSvc.Router())
	r.Mount("/billing", billingMod.Router())
	r.Mount("/webhooks", billingMod.WebhookRouter())

	r.Group(func(r chi.Router) {
		r.Use(authz.RequireSubscription(guard))
		r.Get("/app", func(w http.ResponseWriter, req *http.Request) {
			user, _ := authz.UserFromContext(req.Context())
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintf(w, "welcome back, %s\n", user.Email)
		})
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server listening", slog.String("addr", httpCfg.Addr))
		}),
	)
	return srv.Run(ctx, r)
}

// magicLinkSender renders the sign-in email and delivers it through the
// configured backend.
func magicLinkSender(sender email.EmailSender, baseURL string) auth.SendMagicLinkFunc {
	return func(ctx context.Context, to, tok string) error {
		link := strings.TrimSuffix(baseURL, "/") + "/auth/verify?token=" + url.QueryEscape(tok)
		body := fmt.Sprintf(
			`<p>Click the link below to sign in. It expires in 15 minutes and works once.</p>
<p><a href="%s">Sign in</a></p>
<p>If you did not request this, you can ignore this email.</p>`,
			html.EscapeString(link))

		return sender.SendEmail(ctx, email.SendEmailParams{
			SendTo:   to,
			Subject:  "Your sign-in link",
			BodyHTML: body,
			Tag:      "magic-link",
		})
	}
}

func newBillingProvider(name string) (billing.Provider, error) {
	switch strings.ToLower(name) {
	case "stripe", "":
		var cfg billing.StripeConfig
		config.MustLoad(&cfg)
		return billing.NewStripeProvider(cfg)
	case "paddle":
		var cfg billing.PaddleConfig
		config.MustLoad(&cfg)
		return billing.NewPaddleProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown billing provider: %s", name)
	}
}

func firstSecret(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			return part
		}
	}
	return ""
}
