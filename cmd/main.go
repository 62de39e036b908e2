package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"polls/pkg/config"
	"polls/pkg/engagement"
	"polls/pkg/logger"
	"polls/pkg/middleware"
	"polls/pkg/post"
	postapi "polls/pkg/post/api"
	"polls/pkg/ranking"
	"polls/pkg/trending"
	"polls/pkg/user"
	userapi "polls/pkg/user/api"
)

type postStore interface {
	postapi.IPostRepo
	engagement.PostStore
	ranking.PostSource
	trending.Store
}

type userStore interface {
	userapi.IUserRepo
	engagement.InteractionStore
}

func main() {
	seedData := flag.Bool("seed", false, "generate fake users and polls before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("main: bad config:", err)
	}
	zlog := logger.Run(cfg.LogLevel)
	defer zlog.Sync()

	var (
		postsRepo postStore
		usersRepo userStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		postsRepo, usersRepo = post.NewMemRepo(), user.NewMemRepo()
		zlog.Info("main: using in-memory stores")
	default:
		mongoCtx, mongoCtxCancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
		defer mongoCtxCancel()
		mongoClient, err := mongo.Connect(mongoCtx, options.Client().
			ApplyURI(cfg.MongoURI).
			SetServerSelectionTimeout(cfg.MongoTimeout))
		if err != nil {
			zlog.Fatalw("main: can't connect to MongoDB", "error", err)
		}
		if err := mongoClient.Ping(mongoCtx, nil); err != nil {
			zlog.Fatalw("main: unable to reach MongoDB", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
			defer cancel()
			if err := mongoClient.Disconnect(ctx); err != nil {
				zlog.Errorw("main: failed disconnecting from MongoDB", "error", err)
			}
		}()

		db := mongoClient.Database(cfg.MongoDatabase)
		pr := post.NewPostRepo(db.Collection("posts"), cfg.MongoTimeout)
		ur := user.NewUserRepo(db.Collection("users"), cfg.MongoTimeout)
		if err := pr.EnsureIndexes(context.Background()); err != nil {
			zlog.Fatalw("main: can't create post indexes", "error", err)
		}
		if err := ur.EnsureIndexes(context.Background()); err != nil {
			zlog.Fatalw("main: can't create user indexes", "error", err)
		}
		postsRepo, usersRepo = pr, ur
	}

	updaterOpts := []trending.Option{trending.WithInterval(cfg.TrendingInterval)}
	if cfg.RedisURL != "" {
		pool := trending.NewRedisPool(cfg.RedisURL, cfg.BackendTimeout)
		defer pool.Close()
		updaterOpts = append(updaterOpts, trending.WithLock(trending.NewRedisLock(pool, cfg.TrendingLockTTL)))
	}
	var runLog *trending.RunLog
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			zlog.Fatalw("main: unable to open PostgreSQL", "error", err)
		}
		defer db.Close()
		pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
		err = db.PingContext(pingCtx)
		pingCancel()
		if err != nil {
			zlog.Fatalw("main: unable to reach PostgreSQL", "error", err)
		}
		runLog = trending.NewRunLog(db, cfg.BackendTimeout)
		if err := runLog.EnsureSchema(context.Background()); err != nil {
			zlog.Fatalw("main: can't create trending_runs", "error", err)
		}
		updaterOpts = append(updaterOpts, trending.WithRecorder(runLog))
	}
	updater := trending.NewUpdater(postsRepo, updaterOpts...)

	engagementSvc := engagement.NewService(postsRepo, usersRepo)
	feed := ranking.NewFeed(postsRepo, usersRepo, ranking.FeedOptions{RecencyBonus: cfg.FeedRecencyBonus})

	if *seedData {
		if err := seed(context.Background(), usersRepo, postsRepo, engagementSvc); err != nil {
			zlog.Fatalw("main: seeding failed", "error", err)
		}
	}

	postHandler := postapi.NewPostHandler(postsRepo, engagementSvc, usersRepo)
	userHandler := userapi.NewUserHandler(usersRepo, feed)
	status := &trending.StatusHandler{Runs: updater, Updater: updater}
	if runLog != nil {
		status.Runs = runLog
	}

	r := mux.NewRouter()

	// Feed
	r.HandleFunc("/feed/{user_identifier}", userHandler.Feed).Methods("GET")

	// Posts; /posts/trending must be registered before /posts/{post_id}.
	r.HandleFunc("/posts/trending", postHandler.Trending).Methods("GET")
	r.HandleFunc("/posts", postHandler.Add).Methods("POST")
	r.HandleFunc("/posts/{post_id}", postHandler.Get).Methods("GET")
	r.HandleFunc("/posts/{post_id}", postHandler.Delete).Methods("DELETE")
	r.HandleFunc("/posts/{post_id}/vote", postHandler.Vote).Methods("POST")
	r.HandleFunc("/posts/{post_id}/like", postHandler.Like).Methods("POST")
	r.HandleFunc("/posts/{post_id}/share", postHandler.Share).Methods("POST")

	// Users
	r.HandleFunc("/users", userHandler.Upsert).Methods("POST")
	r.HandleFunc("/users/{user_identifier}", userHandler.Get).Methods("GET")

	// Ops
	r.Handle("/trending/status", status).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	logMiddleware := middleware.NewLoggingMiddleware(zlog)
	r.Use(middleware.Metrics)
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := updater.Start(); err != nil {
		zlog.Fatalw("main: can't start trending updater", "error", err)
	}
	// First cycle right away instead of one interval after boot.
	updater.Trigger()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Infow("main: serving", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatalw("main: server failed", "error", err)
		}
	}()

	<-ctx.Done()
	zlog.Info("main: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Errorw("main: server shutdown failed", "error", err)
	}
	updater.Stop()
}
