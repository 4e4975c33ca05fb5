package app

import (
	"context"
	"log"
	"strings"

	"content-fetch/internal/domain/config"
	"content-fetch/internal/gopher"
	"content-fetch/internal/networker"
	"content-fetch/internal/parts"
	"content-fetch/internal/processor"
	"content-fetch/internal/processor/queue"
	"content-fetch/internal/resolver"
	"content-fetch/internal/schemes"
	"content-fetch/internal/sniffer"
	"content-fetch/internal/transport"
	"content-fetch/internal/utils"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// InitApp wires every component from the environment. Service mode is only wired when Kafka is configured.
func InitApp() *FetcherApp {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := initLogger(cfg.LogLevel)
	tp := initTracing(cfg.OTLPEndpoint)

	nodeID, err := utils.GenerateID()
	if err != nil {
		logger.Fatal("Error generating node ID:", err)
	}

	table := initMimeTable(logger, cfg.MimeTablePath)
	res := initResolver(logger, cfg.DNSServer)
	registry := parts.NewRegistry(logger)

	var redisClient *redis.Client
	var lock transport.LaunchLock = transport.NewLocalLaunchLock()
	if cfg.Redis.Enabled() {
		redisClient = initRedisClient(logger, cfg.Redis.URI, cfg.Redis.Password, cfg.Redis.DB)
		lock = transport.NewRedisLaunchLock(redisClient, logger, nodeID)
	}

	sessions := initSessions(logger, cfg, lock)
	router := initRouter(logger, cfg, registry, res, sessions, table)

	app := &FetcherApp{
		logger:         logger,
		cfg:            cfg,
		router:         router,
		registry:       registry,
		sessions:       sessions,
		redisClient:    redisClient,
		tracerProvider: tp,
	}

	if cfg.Kafka.Enabled() {
		app.requestsQueue = initKafkaQueue(logger, cfg.Kafka, cfg.Kafka.ConsumerGroup, cfg.Kafka.TopicRequests)
		app.eventsQueue = initKafkaQueue(logger, cfg.Kafka, "", cfg.Kafka.TopicEvents)
		app.processor = processor.NewQueueProcessor(logger, app.requestsQueue, app.eventsQueue, router, cfg.FetchBufferSize)
	}

	logger.Infow("Content fetcher initialised", "nodeID", nodeID, "serviceMode", cfg.Kafka.Enabled())
	return app
}

func initRouter(
	logger *zap.SugaredLogger,
	cfg *config.Config,
	registry *parts.Registry,
	res resolver.Resolver,
	sessions *transport.Manager,
	table *sniffer.Table,
) *networker.Router {
	router := networker.NewRouter(logger)

	router.Handle(schemes.SchemeData, schemes.NewDataWorker(logger, registry))
	router.Handle(schemes.SchemeCID, schemes.NewCIDWorker(logger, registry))

	gopherWorker := gopher.NewWorker(logger, res, sessions, table, cfg.GopherIconPrefix)
	router.Handle("gopher", gopherWorker)
	router.Handle("gophers", gopherWorker)

	httpWorker := networker.NewHTTPWorker(logger, sessions, table)
	router.Handle("http", httpWorker)
	router.Handle("https", httpWorker)

	return router
}

func initSessions(logger *zap.SugaredLogger, cfg *config.Config, lock transport.LaunchLock) *transport.Manager {
	opener := transport.NewInterfaceOpener(transport.NewDialerStack(DialTimeout), false)

	return transport.NewManager(logger, opener, transport.NewShellSpawner(logger), lock, transport.ManagerConfig{
		AutoStart:    cfg.Stack.AutoStart,
		StartCommand: cfg.Stack.StartCommand,
		StopCommand:  cfg.Stack.StopCommand,
		StartWait:    cfg.Stack.StartWait,
	})
}

func initResolver(logger *zap.SugaredLogger, dnsServer string) *resolver.Cache {
	if dnsServer != "" {
		logger.Infow("Resolving through configured DNS server", "server", dnsServer)
		return resolver.NewCache(logger, resolver.NewDNSLookup(dnsServer, DNSTimeout))
	}
	return resolver.NewCache(logger, resolver.NewNetLookup())
}

func initMimeTable(logger *zap.SugaredLogger, path string) *sniffer.Table {
	table := sniffer.NewTable()
	if path == "" {
		return table
	}

	if err := sniffer.LoadTableFile(table, path); err != nil {
		logger.Fatalw("Error loading MIME table", "path", path, "err", err)
	}

	logger.Infow("Loaded MIME table", "path", path)
	return table
}

func initRedisClient(logger *zap.SugaredLogger, uri, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: password,
		DB:       db,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		log.Fatalf("redisotel tracing err: %v", err)
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		log.Fatalf("redisotel metrics err: %v", err)
	}

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis for launch lock:", err)
	}

	logger.Infow("Connected to Redis for stack launch lock", "addr", uri)
	return rdb
}

func initKafkaQueue(logger *zap.SugaredLogger, cfg config.KafkaConfig, consumerGroup, topic string) queue.Queue {
	kafkaCfg := queue.KafkaConfig{
		Seeds:         strings.Split(cfg.Addr, ","),
		ConsumerGroup: consumerGroup,
		Topic:         topic,
		User:          cfg.Username,
		Password:      cfg.Password,
	}

	q, err := queue.NewKafkaQueue(logger, &kafkaCfg)
	if err != nil {
		logger.Fatal("Error initializing queue:", err)
	}

	return q
}

func initTracing(endpoint string) *trace.TracerProvider {
	if endpoint == "" {
		return nil
	}

	exp, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		log.Fatalf("Error initializing otlp exporter: %v", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		log.Fatal("Error initializing otel resource:", err)
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)

	return tracerProvider
}

func initLogger(level string) *zap.SugaredLogger {
	zapCfg := zap.NewProductionConfig()

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		log.Fatalf("Error parsing log level %q: %v", level, err)
	}
	zapCfg.Level = atomicLevel

	zapLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("Error initializing zap logger: %v", err)
	}

	return zapLogger.Sugar()
}
