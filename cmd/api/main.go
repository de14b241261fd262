package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/events"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/memdb"
	"github.com/ariefcatur/go-inventory-orders/internal/metrics"
	"github.com/ariefcatur/go-inventory-orders/internal/observability"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/realtime"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var collections = []string{
	catalog.CollectionProducts,
	catalog.CollectionCustomers,
	catalog.CollectionCategories,
	catalog.CollectionOrders,
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewOrders(reg)

	orderSvc := &orders.Service{Metrics: m, Log: logger.Named("orders")}
	catalogSvc := &catalog.Service{Log: logger.Named("catalog")}
	var orderNotifiers orders.Notifiers
	var catalogNotifier catalog.ChangeNotifier

	hub := realtime.NewHub(snapshotter(catalogSvc, orderSvc), logger.Named("realtime"))
	go hub.Run(ctx)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memdb.New()
		orderSvc.Store, orderSvc.Ledger, orderSvc.Customers = mem, mem, mem
		catalogSvc.Store = mem
		for _, c := range collections {
			mem.Subscribe(c, func(collection string, _ []string) { hub.Notify(collection) })
		}
		logger.Info("using in-memory store")

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		repo := &catalog.Repo{DB: db}
		pg := &orders.PostgresStore{DB: db}
		orderSvc.Store, orderSvc.Ledger, orderSvc.Customers = pg, pg, repo
		catalogSvc.Store = repo

	default:
		logger.Fatal("unknown store driver", zap.String("driver", cfg.StoreDriver))
	}

	var idem httpx.Idempotency
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache := &catalog.Cache{Redis: rdb, TTL: redisx.TTLProductCache}
		catalogSvc.Cache = cache
		orderNotifiers = append(orderNotifiers, orders.InvalidateOnPlace(cache, func(err error) {
			logger.Warn("product cache invalidation failed", zap.Error(err))
		}))
		idem = &redisx.Idempotency{Redis: rdb}
	}

	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		placed := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024, logger.Named("kafka"))
		changed := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicInventoryChanged, 1024, logger.Named("kafka"))
		placed.Start(ctx)
		changed.Start(ctx)
		producers = append(producers, placed, changed)

		pub := &events.Publisher{Orders: placed, Changes: changed, Producer: cfg.ServiceName}
		orderNotifiers = append(orderNotifiers, pub)
		catalogNotifier = pub

		// every api instance needs every change, so each gets its own group
		group := cfg.ServiceName + "-realtime-" + uuid.NewString()
		bridge := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicInventoryChanged, 1, logger.Named("realtime"))
		go func() {
			if err := bridge.Start(ctx, hub.HandleChange); err != nil {
				logger.Error("realtime bridge exit", zap.Error(err))
			}
		}()
	} else if cfg.StoreDriver == config.DriverPostgres {
		orderNotifiers = append(orderNotifiers, hub)
		catalogNotifier = hub
	}

	if len(orderNotifiers) > 0 {
		orderSvc.Notifier = orderNotifiers
	}
	if catalogNotifier != nil {
		catalogSvc.Notifier = catalogNotifier
	}

	router := httpx.NewRouter(logger.Named("http"), reg)
	oh := &httpx.OrdersHandler{Service: orderSvc, Log: logger.Named("http")}
	if idem != nil {
		oh.Idem = idem
	}
	oh.Register(router)
	(&httpx.CatalogHandler{Service: catalogSvc, Log: logger.Named("http")}).Register(router)
	router.Get("/ws/{collection}", realtime.ServeWS(hub, logger.Named("realtime"), collections...))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	hub.Stop()
	for _, p := range producers {
		p.Close() // flush inbox, then close writer
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
	if err := shutdownTracing(ctx2); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func snapshotter(cat *catalog.Service, ord *orders.Service) realtime.SnapshotFunc {
	return func(ctx context.Context, collection string) (any, error) {
		switch collection {
		case catalog.CollectionProducts:
			return cat.ListProducts(ctx)
		case catalog.CollectionCustomers:
			return cat.ListCustomers(ctx)
		case catalog.CollectionCategories:
			return cat.ListCategories(ctx)
		case catalog.CollectionOrders:
			return ord.ListOrders(ctx, orders.ListFilter{})
		}
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}
