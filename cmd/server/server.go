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

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/course-market/api"
	"github.com/irsalhamdi/course-market/cache"
	"github.com/irsalhamdi/course-market/config"
	"github.com/irsalhamdi/course-market/core/auth"
	"github.com/irsalhamdi/course-market/core/enrollment"
	"github.com/irsalhamdi/course-market/core/payment"
	"github.com/irsalhamdi/course-market/database"
	"github.com/irsalhamdi/course-market/events"
	"github.com/irsalhamdi/course-market/rate"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	const prefix = "COURSEMARKET"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
	} else {
		logger.Warn("redis address not set, enrollment reads are uncached")
	}
	store := cache.New(rdb, "coursemarket:", cfg.Redis.TTL)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Events.Buffer,
	}, events.Logger(logger))
	defer pubsub.Close()
	bus := events.NewBus(pubsub)

	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	for _, topic := range events.Topics {
		err := events.Listen(listenCtx, pubsub, topic, logger, func(evt events.Event) {
			logger.WithFields(logrus.Fields{
				"topic":   evt.Topic,
				"user_id": evt.UserID,
				"attrs":   evt.Attributes,
			}).Info("event")
		})
		if err != nil {
			return fmt.Errorf("failed to listen for events: %w", err)
		}
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	loginLimiter := rate.NewLimiter(cfg.Auth.LoginBurst, time.Hour, rate.Every(cfg.Auth.LoginInterval))
	defer loginLimiter.Stop()
	confirmLimiter := rate.NewLimiter(cfg.Payment.ConfirmBurst, time.Hour, rate.Every(cfg.Payment.ConfirmInterval))
	defer confirmLimiter.Stop()

	enrollments := enrollment.NewStore(db)

	sweeper, err := payment.NewSweeper(logger, cfg.Payment.SweepSchedule, cfg.Payment.OrphanAge, payment.OrphansIn(db))
	if err != nil {
		return err
	}
	sweeper.Start()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Events:           bus,
		Tracker:          enrollment.NewTracker(enrollments, store, logger),
		Workflow:         enrollment.NewWorkflow(enrollments, store, bus, logger, cfg.Payment.ReceiverID),
		Reconciler:       enrollment.NewReconciler(enrollments, store, bus, logger),
		LoginLimiter:     loginLimiter,
		ConfirmLimiter:   confirmLimiter,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := sweeper.Stop(ctx); err != nil {
			return fmt.Errorf("could not complete the running sweep: %w", err)
		}
	}
	return nil
}
