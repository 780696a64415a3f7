package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dispensing"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/events"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/memory"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/metrics"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/postgres"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/retry"
	httpRouter "github.com/jhoicas/pharmacy-inventory/internal/interfaces/http"
	"github.com/jhoicas/pharmacy-inventory/pkg/config"
	"github.com/jhoicas/pharmacy-inventory/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Inventory.Store).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Store: PostgreSQL en producción; memoria para demos y desarrollo local.
	var store ports.TxRunner
	switch cfg.Inventory.Store {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB, cfg.Inventory.LockTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("aplicar esquema")
		}
		store = postgres.NewTxRunner(pool)
	default:
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
		store = memory.NewStore(cfg.Inventory.LockTimeout)
	}

	m := metrics.New("pharmacy_inventory")
	txRunner := retry.NewRunner(store, retry.Config{
		MaxRetries: cfg.Inventory.MaxRetries,
		BaseDelay:  cfg.Inventory.RetryBaseDelay,
		MaxDelay:   cfg.Inventory.RetryMaxDelay,
	}, m, log.Component("retry"))

	// Eventos: Kafka si hay brokers, si no quedan en el log.
	var publisher ports.EventPublisher = events.NewLogPublisher(log.Component("events"))
	if cfg.Kafka.Enabled() {
		breaker := events.DefaultBreakerConfig()
		if cfg.Kafka.BreakerFailures > 0 {
			breaker.FailureThreshold = uint32(cfg.Kafka.BreakerFailures)
		}
		if cfg.Kafka.BreakerOpenDelay > 0 {
			breaker.Timeout = cfg.Kafka.BreakerOpenDelay
		}
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Source:  cfg.App.Name,
		}, breaker, m, log.Component("kafka"))
		defer kp.Close()
		publisher = kp
	}

	l := ledger.New()
	medicationUC := catalog.NewMedicationUseCase(txRunner)
	purchaseUC := purchase.NewPurchaseUseCase(txRunner, l, publisher, log.Component("purchase"))
	allocateUC := allocation.NewAllocateUseCase(txRunner, l, publisher, m, log.Component("allocation"), cfg.Inventory.HoldTimeout)
	dispenseUC := dispensing.NewDispenseUseCase(txRunner, l, publisher, m, log.Component("dispensing"))
	transferUC := transfer.NewTransferUseCase(txRunner, l, publisher, m, log.Component("transfer"))
	auditQuery := ledger.NewAuditQuery(txRunner)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log.Component("http")),
	})
	app.Use(httpRouter.RequestMetrics(m))
	app.Use(httpRouter.RequestLogger(log.Component("http")))
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Pharmacy Inventory API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Inventory.Store})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		MedicationUC:    medicationUC,
		PurchaseUC:      purchaseUC,
		AllocateUC:      allocateUC,
		DispenseUC:      dispenseUC,
		TransferUC:      transferUC,
		AuditQuery:      auditQuery,
		JWTSecret:       cfg.JWT.Secret,
		DefaultLocation: cfg.Inventory.DefaultLocation,
	})

	go allocateUC.RunSweeper(ctx, cfg.Inventory.SweepInterval)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
