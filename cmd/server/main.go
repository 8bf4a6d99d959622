package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farca/storefront/auth"
	"github.com/farca/storefront/config"
	"github.com/farca/storefront/controller"
	"github.com/farca/storefront/database"
	"github.com/farca/storefront/metrics"
	"github.com/farca/storefront/provider/local"
	"github.com/farca/storefront/repository"
	"github.com/farca/storefront/storage"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("storefront"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.Config{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	conf := cfg.Raw()

	db, err := database.Open(conf.GetDatabase())
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := database.CreateSchema(ctx, db); err != nil {
		panic(err)
	}

	authCfg := conf.GetAuth()
	provider := local.NewProvider(local.NewCredentialsRepository(db), local.Config{
		SigningKey:       authCfg.GetSigningKey(),
		TokenExpiration:  authCfg.GetTokenExpiration(),
		Issuer:           authCfg.GetIssuer(),
		Audience:         authCfg.GetAudience(),
		MaxLoginAttempts: authCfg.GetMaxLoginAttempts(),
		CoolDownPeriod:   authCfg.GetCoolDownPeriod(),
	}).WithLogger(lgr.GetLogger("auth"))

	repos := repository.NewManager(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sink := collector.ActivitySink()

	appLogger := lgr.GetLogger("http")

	provisioner := auth.NewProvisioner(provider, repos.Profiles()).
		WithLogger(lgr.GetLogger("provision")).
		WithActivitySink(sink)

	stateMachine := auth.NewProfileStateMachine(repos.Profiles(),
		auth.WithStateMachineActivitySink(sink),
		auth.WithStateMachineLogger(lgr.GetLogger("lifecycle")),
	)

	store, closeStore, err := newObjectStore(ctx, conf.GetStorage(), lgr)
	if err != nil {
		panic(err)
	}
	defer closeStore()

	app := fiber.New(fiber.Config{
		AppName: "storefront",
	})

	controller.Register(app, controller.Controllers{
		Auth: &controller.AuthController{
			Provider:    provider,
			Profiles:    repos.Profiles(),
			Provisioner: provisioner,
			Logger:      appLogger,
			Sink:        sink,
		},
		Products:  &controller.ProductsController{Products: repos.Products(), Store: store, Logger: appLogger},
		Orders:    &controller.OrdersController{Orders: repos.Orders(), Products: repos.Products(), Logger: appLogger, Collector: collector},
		Documents: &controller.DocumentsController{Documents: repos.Documents(), Store: store, Logger: appLogger},
		Clients:   &controller.ClientsController{Profiles: repos.Profiles(), StateMachine: stateMachine, Logger: appLogger},
		Provider:  provider,
		Profiles:  repos.Profiles(),
		Logger:    appLogger,
		Registry:  registry,
		Collector: collector,
	})

	address := conf.GetServer().GetAddress()
	go func() {
		if err := app.Listen(address); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()
	lgr.Info("listening", "address", address)

	WaitExitSignal()

	if err := app.Shutdown(); err != nil {
		lgr.Error("shutdown failed", "error", err)
	}
}

// newObjectStore picks GCS when a bucket is configured, the in-memory store
// otherwise so the server runs without cloud credentials in development.
func newObjectStore(ctx context.Context, cfg config.Storage, lgr *glog.BaseLogger) (storage.ObjectStore, func(), error) {
	if cfg.GetBucket() == "" {
		lgr.Warn("no storage bucket configured, uploads are kept in memory")
		return storage.NewMemoryStore(), func() {}, nil
	}

	gcsStore, err := storage.NewGCSStore(ctx, storage.GCSConfig{
		Bucket:        cfg.GetBucket(),
		PublicBaseURL: cfg.GetPublicBaseURL(),
		EmulatorHost:  cfg.GetEmulatorHost(),
	}, lgr.GetLogger("storage"))
	if err != nil {
		return nil, nil, err
	}

	return gcsStore, func() {
		if err := gcsStore.Close(); err != nil {
			lgr.Error("storage client close failed", "error", err)
		}
	}, nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	return <-ch
}
