package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"orderservice/pkg/common/domain"
	"orderservice/pkg/domain/service"
	"orderservice/pkg/infrastructure/event"
	"orderservice/pkg/infrastructure/gateway"
	"orderservice/pkg/infrastructure/metrics"
	"orderservice/pkg/infrastructure/mysql"
	"orderservice/pkg/infrastructure/tracing"
	"orderservice/pkg/infrastructure/transport"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  appID,
		Usage: "order and payment service",
		Commands: []*cli.Command{
			{
				Name:   "service",
				Usage:  "run the HTTP API and gRPC health endpoint",
				Action: runService,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("orderservice failed")
	}
}

func setupLogger(c *config) log.FieldLogger {
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
	}
	return log.WithField("app", appID)
}

func runMigrate(_ *cli.Context) error {
	c, err := parseEnv()
	if err != nil {
		return err
	}
	logger := setupLogger(c)

	db, err := mysql.Open(databaseConfig(c))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func runService(cliCtx *cli.Context) error {
	c, err := parseEnv()
	if err != nil {
		return err
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	logger := setupLogger(c)

	shutdownTracing, err := tracing.Setup(cliCtx.Context, tracing.Config{
		ServiceName:    appID,
		ServiceVersion: c.ServiceVersion,
		Endpoint:       c.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	db, err := mysql.Open(databaseConfig(c))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := mysql.Migrate(db); err != nil {
		return err
	}

	dispatcher, closeDispatcher, err := newDispatcher(c, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDispatcher(); err != nil {
			logger.WithError(err).Warn("failed to close event dispatcher")
		}
	}()

	products := mysql.NewProductRepository(db)
	orders := mysql.NewOrderRepository(db)
	carts := mysql.NewCartRepository(db)
	processed := mysql.NewProcessedEventRepository(db)
	stripeGateway := gateway.NewStripeGateway(c.StripeSecretKey)

	catalog := service.NewCatalogAccessor(products, dispatcher, logger)
	services := transport.Services{
		Checkout: service.NewCheckoutService(catalog, orders, carts, dispatcher, logger),
		Orders:   service.NewOrderService(orders, catalog, dispatcher, logger),
		Payments: service.NewPaymentService(orders, stripeGateway, service.PaymentSettings{
			Currency:    c.PaymentCurrency,
			FrontendURL: c.FrontendURL,
		}, logger),
		Webhooks: service.NewWebhookReconciler(stripeGateway, orders, processed, dispatcher, logger, c.StripeWebhookSecret),
	}

	router := transport.Router(services, transport.Options{
		Logger:         logger,
		Metrics:        metrics.NewServerMetrics(prometheus.DefaultRegisterer, "orders"),
		MetricsHandler: metrics.Handler(),
		Ready:          db.PingContext,
		RequestTimeout: c.RequestTimeout,
	})
	httpServer := &http.Server{
		Addr:              c.ServeRESTAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(appID, healthpb.HealthCheckResponse_SERVING)

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("address", c.ServeRESTAddress).Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		listener, err := net.Listen("tcp", c.ServeGRPCAddress)
		if err != nil {
			return errors.Wrap(err, "failed to listen for grpc")
		}
		logger.WithField("address", c.ServeGRPCAddress).Info("starting grpc server")
		return grpcServer.Serve(listener)
	})
	g.Go(func() error {
		killSignalChan := getKillSignalChan()
		select {
		case sig := <-killSignalChan:
			logger.WithField("signal", sig.String()).Info("shutting down")
		case <-gctx.Done():
		}

		healthServer.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func databaseConfig(c *config) mysql.Config {
	return mysql.Config{
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Host:     c.DatabaseHost,
		Name:     c.DatabaseName,
		MaxConn:  c.DatabaseMaxConn,
	}
}

func newDispatcher(c *config, logger log.FieldLogger) (domain.EventDispatcher, func() error, error) {
	switch c.EventBroker {
	case "rabbitmq":
		d, err := event.NewAMQPDispatcher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case "kafka":
		d, err := event.NewKafkaDispatcher(c.KafkaBrokers, c.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case "log", "":
		d := event.NewLogDispatcher(logger)
		return d, d.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown event broker %q", c.EventBroker)
	}
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}
