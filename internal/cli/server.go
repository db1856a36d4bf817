package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"windshield-quiz-service/internal/app"
	"windshield-quiz-service/internal/config"
	"windshield-quiz-service/internal/delivery"
	"windshield-quiz-service/internal/events"
	"windshield-quiz-service/internal/infra/memory"
	pgloader "windshield-quiz-service/internal/infra/postgres"
	redisstore "windshield-quiz-service/internal/infra/redis"
	"windshield-quiz-service/internal/logging"
	transport "windshield-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var loader memory.QuizLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewQuizLoader(pool)
	} else {
		var args []string
		if cfg.Quiz.Dir != "" {
			args = []string{cfg.Quiz.Dir}
		}
		defs, err := loadDefinitions(args)
		if err != nil {
			return err
		}
		log.WithField("quizzes", len(defs)).Info("serving quiz definitions from files")
		loader = memory.NewStaticQuizLoader(defs...)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient,
			config.TTLDuration(cfg.Redis.TTL, 24*time.Hour),
			config.TTLDuration(cfg.Redis.ResultTTL, 30*24*time.Hour),
		)
	} else {
		store = memory.NewSessionStore()
	}

	var bus message.Publisher
	if len(cfg.Events.Brokers) > 0 {
		bus, err = events.NewKafkaPublisher(cfg.Events.Brokers, log)
		if err != nil {
			return err
		}
	} else {
		bus = events.NewInProcess(log)
	}
	publisher := events.NewPublisher(bus, events.Topics{
		Quiz:   cfg.Events.QuizTopic,
		Widget: cfg.Events.WidgetTopic,
		Leads:  cfg.Events.LeadTopic,
	}, log)
	defer publisher.Close()

	opts := []app.ServiceOption{
		app.WithEventSink(publisher),
		app.WithPartnerNotifier(delivery.NewPartnerCallback(config.TTLDuration(cfg.Partner.Timeout, 5*time.Second))),
	}
	if cfg.SMTP.Host != "" {
		mailer, err := delivery.NewSMTPMailer(delivery.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  config.TTLDuration(cfg.SMTP.Timeout, 10*time.Second),
			BaseURL:  cfg.Server.BaseURL,
		})
		if err != nil {
			return err
		}
		opts = append(opts, app.WithMailer(mailer))
	} else {
		log.Warn("smtp not configured; email results disabled")
	}
	service := app.NewQuizService(quizRepo, store, log, opts...)

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(transport.RouterConfig{
			Service:   service,
			Tracker:   publisher,
			Analytics: publisher,
			BaseURL:   cfg.Server.BaseURL,
			Log:       log,
		}),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: widget WebSocket connections stay open.
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	service.Wait()
	return err
}
