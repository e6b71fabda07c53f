package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/adapter/memory"
	"github.com/YelzhanWeb/tableorder/internal/adapter/postgres"
	"github.com/YelzhanWeb/tableorder/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/tableorder/internal/app/detect"
	"github.com/YelzhanWeb/tableorder/internal/app/dispatch"
	"github.com/YelzhanWeb/tableorder/internal/app/kitchen"
	"github.com/YelzhanWeb/tableorder/internal/app/order"
	"github.com/YelzhanWeb/tableorder/internal/app/tracking"
	"github.com/YelzhanWeb/tableorder/internal/config"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"

	amqpAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/http"
	mongoAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/mongo"
	natsAdapter "github.com/YelzhanWeb/tableorder/internal/adapter/nats"
)

func main() {
	mode := flag.String("mode", "", "Service mode: order-service, change-detector, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	port := flag.Int("port", 3000, "HTTP port")
	withDetector := flag.Bool("with-detector", false, "Run change detection inside the order service")
	audience := flag.String("audience", "", "Audience role to subscribe to: admin, kitchen, cashier, table")
	tableID := flag.String("table-id", "", "Table id (for --audience=table)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lgr := logger.NewWithWriter(*mode, os.Stdout, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := openTransport(cfg, lgr)
	if err != nil {
		log.Fatalf("Failed to open transport: %v", err)
	}
	defer transport.Close()

	switch *mode {
	case "order-service":
		repo, closeStore := mustOpenStore(ctx, cfg, lgr)
		defer closeStore()
		// The in-process broker reaches no other process, so detection must run here.
		embed := *withDetector || cfg.Transport.Driver == "memory"
		runOrderService(ctx, cfg, repo, transport, lgr, *port, embed)

	case "change-detector":
		repo, closeStore := mustOpenStore(ctx, cfg, lgr)
		defer closeStore()
		runChangeDetector(ctx, cfg, repo, transport, lgr)

	case "notification-subscriber":
		target, err := domain.ParseAudience(*audience, *tableID)
		if err != nil {
			log.Fatalf("Invalid audience: %v", err)
		}
		runNotificationSubscriber(ctx, transport, target, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func mustOpenStore(ctx context.Context, cfg *config.Config, lgr logger.Logger) (interfaces.OrderRepository, func()) {
	repo, closeStore, err := openStore(ctx, cfg, lgr)
	if err != nil {
		log.Fatalf("Failed to open order store: %v", err)
	}
	return repo, closeStore
}

func openStore(ctx context.Context, cfg *config.Config, lgr logger.Logger) (interfaces.OrderRepository, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})
		return postgres.NewOrderStore(db), db.Close, nil

	case "mongo":
		client, db, err := mongoAdapter.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		lgr.Info("db_connected", "Connected to MongoDB", "startup", map[string]interface{}{
			"db": cfg.Mongo.Database,
		})
		closeFn := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(shutdownCtx); err != nil {
				lgr.Error("db_disconnect_failed", "Failed to disconnect from MongoDB", "shutdown", nil, err)
			}
		}
		return mongoAdapter.NewOrderStore(db), closeFn, nil

	case "memory":
		lgr.Info("db_connected", "Using in-memory order store", "startup", nil)
		return memory.NewOrderStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openTransport(cfg *config.Config, lgr logger.Logger) (interfaces.Transport, error) {
	switch cfg.Transport.Driver {
	case "rabbitmq":
		conn, err := rabbitmq.Connect(cfg.RabbitMQ, lgr)
		if err != nil {
			return nil, err
		}
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host": cfg.RabbitMQ.Host,
		})
		return rabbitmq.NewTransport(conn, lgr), nil

	case "nats":
		conn, err := natsAdapter.Connect(cfg.NATS.URL, lgr)
		if err != nil {
			return nil, err
		}
		lgr.Info("nats_connected", "Connected to NATS", "startup", map[string]interface{}{
			"url": cfg.NATS.URL,
		})
		return natsAdapter.NewTransport(conn, lgr), nil

	case "memory":
		return memory.NewBroker(), nil
	}
	return nil, fmt.Errorf("unknown transport driver %q", cfg.Transport.Driver)
}

func newDetector(cfg *config.Config, repo interfaces.OrderStore, transport interfaces.Transport, lgr logger.Logger) *detect.Service {
	dispatcher := dispatch.NewDispatcher(transport, lgr)
	return detect.NewService(repo, dispatcher, lgr, cfg.Detector.Interval, cfg.Detector.AnnounceExisting)
}

// startDetector runs the detection loop and feeds it from the change feed
// until ctx is done.
func startDetector(ctx context.Context, detector *detect.Service, feed interfaces.ChangeFeed, lgr logger.Logger) error {
	if err := detector.Start(ctx); err != nil {
		return err
	}

	changeHandler := amqpAdapter.NewChangeHandler(detector, lgr)
	go func() {
		if err := feed.ConsumeChanges(ctx, changeHandler.HandleChange); err != nil {
			lgr.Error("consumer_error", "Error consuming change feed", "runtime", nil, err)
		}
	}()
	return nil
}

func runOrderService(ctx context.Context, cfg *config.Config, repo interfaces.OrderRepository, transport interfaces.Transport, lgr logger.Logger, port int, embedDetector bool) {
	dispatcher := dispatch.NewDispatcher(transport, lgr)

	orderService := order.NewService(repo, dispatcher, transport, lgr)
	kitchenService := kitchen.NewService(repo, orderService, lgr)
	trackingService := tracking.NewService(repo, lgr)

	if embedDetector {
		detector := newDetector(cfg, repo, transport, lgr)
		if err := startDetector(ctx, detector, transport, lgr); err != nil {
			log.Fatalf("Failed to start change detector: %v", err)
		}
		defer detector.Stop()
	}

	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Orders:   httpAdapter.NewOrderHandler(orderService, lgr),
		Tracking: httpAdapter.NewTrackingHandler(trackingService, lgr),
		Kitchen:  httpAdapter.NewKitchenHandler(kitchenService, lgr),
		Stream:   httpAdapter.NewStreamHandler(transport, lgr),
	}, lgr)

	// No WriteTimeout: event streams stay open.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", port), "startup", map[string]interface{}{
		"port":           port,
		"store":          cfg.Store.Driver,
		"transport":      cfg.Transport.Driver,
		"embed_detector": embedDetector,
	})

	go func() {
		<-ctx.Done()
		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runChangeDetector(ctx context.Context, cfg *config.Config, repo interfaces.OrderStore, transport interfaces.Transport, lgr logger.Logger) {
	detector := newDetector(cfg, repo, transport, lgr)
	if err := startDetector(ctx, detector, transport, lgr); err != nil {
		log.Fatalf("Failed to start change detector: %v", err)
	}

	lgr.Info("service_started", "Change Detector started", "startup", map[string]interface{}{
		"interval":          cfg.Detector.Interval.String(),
		"announce_existing": cfg.Detector.AnnounceExisting,
	})

	<-ctx.Done()

	lgr.Info("shutdown_initiated", "Shutting down Change Detector", "shutdown", nil)
	detector.Stop()
}

func runNotificationSubscriber(ctx context.Context, transport interfaces.ChannelSubscriber, audience domain.Audience, lgr logger.Logger) {
	notificationHandler := amqpAdapter.NewNotificationHandler(os.Stdout, lgr)
	channel := domain.ChannelFor(audience)

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"audience": audience.String(),
		"channel":  channel,
	})

	if err := transport.Subscribe(ctx, channel, notificationHandler.HandleNotification); err != nil {
		lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
	}

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}
