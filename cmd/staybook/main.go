package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	paymentsapp "staybook/internal/app/handlers/payments"
	propertyapp "staybook/internal/app/handlers/property"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	"staybook/internal/infra/broker/kafka"
	redisstore "staybook/internal/infra/cache/redis"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/inbox"
	"staybook/internal/infra/notify"
	"staybook/internal/infra/obs"
	outboxinfra "staybook/internal/infra/outbox"
	stripeinfra "staybook/internal/infra/payments/stripe"
	"staybook/internal/infra/storage/memory"
	"staybook/internal/infra/storage/s3"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.PendingTTL = 30 * time.Minute
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if app.paymentConsumer != nil {
		go func() {
			if err := app.paymentConsumer.Run(ctx, []string{kafka.PaymentEventsTopic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("payment events consumer stopped", "error", err)
			}
		}()
	}
	go app.runSweep(ctx, cfg, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers        ginserver.Handlers
	commandBus      commands.Bus
	outboxWorker    *outboxinfra.Worker
	paymentConsumer *kafka.Consumer
	ready           func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	var (
		uowFactory  uow.UoWFactory
		outboxStore appoutbox.Outbox
		idStore     middleware.IdempotencyStore
		inboxStore  paymentsapp.Inbox
		ready       func() error
		worker      *outboxinfra.Worker
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		availabilityRepo := mongodb.NewAvailabilityRepository(client.DB)
		if err := availabilityRepo.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		uowFactory = mongodb.Factory{
			DB:               client.DB,
			PropertyRepo:     mongodb.NewPropertyRepository(client.DB),
			BookingRepo:      mongodb.NewBookingRepository(client.DB),
			AvailabilityRepo: availabilityRepo,
			CustomPriceRepo:  mongodb.NewCustomPriceRepository(client.DB),
		}
		store := outboxinfra.NewStore(client.DB)
		outboxStore = store
		idStore = mongodb.NewIdempotencyStore(client.DB)
		inboxStore = inbox.NewStore(client.DB, "payments-reconciler")
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, err
			}
			worker = &outboxinfra.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		}
	} else {
		logger.Warn("MONGO_URI not set, falling back to in-memory storage")
		uowFactory = memory.Factory{
			PropertyRepo:     memory.NewPropertyRepository(),
			BookingRepo:      memory.NewBookingRepository(),
			AvailabilityRepo: memory.NewAvailabilityRepository(),
			CustomPriceRepo:  memory.NewCustomPriceRepository(),
		}
		outboxStore = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}

	if cfg.IdempotencyBackend == "redis" && cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		idStore = redisstore.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	}

	var payments policies.PaymentsPort
	if cfg.StripeAPIKey != "" {
		adapter, err := stripeinfra.New(cfg.StripeAPIKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, logger)
		if err != nil {
			return nil, err
		}
		payments = adapter
	} else {
		logger.Warn("STRIPE_API_KEY not set, payment sessions disabled")
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("s3 uploader unavailable", "error", err)
		} else {
			uploader = client
		}
	}

	notifier := notify.LogNotifier{Logger: logger}
	encoder := appoutbox.JSONEventEncoder{}

	// Handlers on this bus open and commit their own units: the conflict
	// guard must commit the reservation before calling the payment
	// collaborator, so the Transaction middleware stays off this chain.
	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.SubmitBookingCommand{}.Key(), &bookingapp.SubmitBookingHandler{
		UoWFactory:     uowFactory,
		Payments:       payments,
		Outbox:         outboxStore,
		Encoder:        encoder,
		PaymentTimeout: cfg.PaymentTimeout,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, bookingapp.SweepStaleBookingsCommand{}.Key(), &bookingapp.SweepStaleBookingsHandler{
		UoWFactory: uowFactory,
		Payments:   payments,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, paymentsapp.PaymentEventCommand{}.Key(), &paymentsapp.ReconcileHandler{
		UoWFactory: uowFactory,
		Inbox:      inboxStore,
		Outbox:     outboxStore,
		Encoder:    encoder,
		Notifier:   notifier,
		Logger:     logger,
	})
	commands.RegisterHandler(commandBus, availabilityapp.BlockDatesCommand{}.Key(), &availabilityapp.BlockDatesHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, availabilityapp.UnblockDatesCommand{}.Key(), &availabilityapp.UnblockDatesHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    encoder,
	})
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(idStore, nil),
		middleware.OutboxFlush(outboxStore),
	)

	// Photo upload expects its unit in context, so it runs behind the
	// Transaction middleware on a separate chain.
	photoBus := commands.NewInMemoryBus()
	commands.RegisterHandler(photoBus, propertyapp.AddPhotoCommand{}.Key(), &propertyapp.AddPhotoHandler{
		Logger:   logger,
		Uploader: uploader,
	})
	photoBusWithMiddleware := middleware.ChainCommands(
		photoBus,
		middleware.Transaction(uowFactory, nil),
	)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, propertyapp.GetPropertyQuery{}.Key(), &propertyapp.GetPropertyHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, propertyapp.ListBookingsQuery{}.Key(), &propertyapp.ListBookingsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, propertyapp.QuoteQuery{}.Key(), &propertyapp.QuoteHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, availabilityapp.GetUnavailableDatesQuery{}.Key(), &availabilityapp.GetUnavailableDatesHandler{UoWFactory: uowFactory})
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		c, err := kafka.NewConsumer(cfg.KafkaBrokers, "staybook-payments", nil, &kafka.PaymentEventsHandler{
			Bus:    commandBusWithMiddleware,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("payment events consumer unavailable", "error", err)
		} else {
			consumer = c
		}
	}

	return &application{
		handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{Commands: commandBusWithMiddleware},
			Availability: ginserver.AvailabilityHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
			},
			Property: ginserver.PropertyHandler{
				Commands: photoBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
			},
			Webhook: ginserver.WebhookHandler{
				Commands: commandBusWithMiddleware,
				Verifier: stripeinfra.NewWebhookVerifier(cfg.StripeWebhookKey),
				Logger:   logger,
			},
		},
		commandBus:      commandBusWithMiddleware,
		outboxWorker:    worker,
		paymentConsumer: consumer,
		ready:           ready,
	}, nil
}

// runSweep cancels abandoned pending bookings on a fixed interval so their
// night holds are released.
func (a *application) runSweep(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd := bookingapp.SweepStaleBookingsCommand{Cutoff: time.Now().UTC().Add(-ttl)}
			result, err := commands.Dispatch[bookingapp.SweepStaleBookingsCommand, *bookingapp.SweepStaleBookingsResult](ctx, a.commandBus, cmd)
			if err != nil {
				logger.Error("stale booking sweep failed", "error", err)
				continue
			}
			if result != nil && result.Cancelled > 0 {
				logger.Info("stale bookings cancelled", "count", result.Cancelled)
			}
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
