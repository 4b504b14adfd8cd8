package routes

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stored-pay/stored_pay/internal/checkout"
	"github.com/stored-pay/stored_pay/internal/config"
	"github.com/stored-pay/stored_pay/internal/events"
	"github.com/stored-pay/stored_pay/internal/middleware"
	"github.com/stored-pay/stored_pay/internal/processor"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Processor overrides the config-selected connector. Used by tests.
	Processor processor.Processor
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	proc := d.Processor
	if proc == nil {
		if d.Cfg.LiveMode() {
			proc = processor.NewStripeProcessor(d.Cfg.SecretKey)
		} else {
			proc = processor.NewSimulated()
		}
	}

	var eventStore events.Store
	if d.DB != nil {
		pg := events.NewPostgresStore(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return err
		}
		eventStore = pg
	} else {
		eventStore = events.NewMemoryStore()
	}

	checkoutSvc := checkout.NewService(proc, d.Logger)
	checkoutHandler := checkout.NewHandler(checkoutSvc, d.Cfg.PublishableKey, d.Logger)
	notifier := events.NewNotifier(eventStore, d.Logger)
	webhookHandler := events.NewHandler(notifier, d.Cfg.WebhookSecret, d.Logger)

	RegisterCheckoutRoutes(app, checkoutHandler)
	RegisterWebhookRoutes(app, webhookHandler)

	// Checkout page and assets.
	app.Static("/", d.Cfg.StaticDir)

	return nil
}
