package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	forumconfig "github.com/example/career-platform/internal/forum/config"
	"github.com/example/career-platform/internal/forum/events"
	"github.com/example/career-platform/internal/forum/handlers"
	"github.com/example/career-platform/internal/forum/store"
	"github.com/example/career-platform/internal/platform/auth"
	"github.com/example/career-platform/internal/platform/config"
	"github.com/example/career-platform/internal/platform/db"
	"github.com/example/career-platform/internal/platform/httpserver"
	"github.com/example/career-platform/internal/platform/logging"
	"github.com/example/career-platform/internal/platform/run"
)

type stores struct {
	posts    store.PostStore
	comments store.CommentStore
	users    store.UserStore
}

func main() {
	_ = godotenv.Load()

	appCfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(appCfg.ServiceName, appCfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := forumconfig.Load()
	if err != nil {
		log.Error("config", zap.Error(err))
		run.Exit(1)
	}

	st, ready, closePool := initStores(log, appCfg, cfg)
	if closePool != nil {
		defer closePool()
	}

	pub, err := events.New(cfg.NATSURL, log)
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	defer pub.Close()

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: ready, Logger: log})

	// Public reads; auth required for everything that mutates.
	r.Get("/v1/forum/posts", handlers.ListPosts(st.posts, log))
	r.Get("/v1/forum/posts/{post_id}", handlers.GetPost(st.posts, st.comments, log))
	r.Get("/v1/forum/posts/{post_id}/comments", handlers.GetThread(st.comments, log))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/forum/posts", handlers.CreatePost(st.posts, st.users, pub, log))
		r.Put("/v1/forum/posts/{post_id}", handlers.UpdatePost(st.posts, st.users, pub, log))
		r.Delete("/v1/forum/posts/{post_id}", handlers.DeletePost(st.posts, st.users, pub, log))
		r.Post("/v1/forum/posts/{post_id}/vote", handlers.VotePost(st.posts, st.users, pub, log))
		r.Post("/v1/forum/posts/{post_id}/comments", handlers.CreateComment(st.comments, st.users, pub, log))
		r.Delete("/v1/forum/posts/{post_id}/comments/{comment_id}", handlers.DeleteComment(st.comments, st.users, pub, log))
	})

	srv := httpserver.New(httpserver.Options{Addr: appCfg.HTTP.Addr, ServiceName: appCfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the storage backend. In production a working Postgres
// connection is required and the process terminates otherwise.
func initStores(log *zap.Logger, appCfg config.AppConfig, cfg forumconfig.Config) (stores, func() error, func()) {
	if cfg.DatabaseURL == "" {
		if appCfg.IsProduction() {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory store (development only)")
		mem := store.NewInMemoryStore()
		if cfg.SeedDevData {
			seedDevData(mem, log)
		}
		return stores{posts: mem, comments: mem, users: mem}, nil, nil
	}

	pool, err := db.OpenDSN(context.Background(), cfg.DatabaseURL)
	if err != nil {
		if appCfg.IsProduction() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory store", zap.Error(err))
		mem := store.NewInMemoryStore()
		if cfg.SeedDevData {
			seedDevData(mem, log)
		}
		return stores{posts: mem, comments: mem, users: mem}, nil, nil
	}

	if err := store.MigrateUp(cfg.DatabaseURL); err != nil {
		pool.Close()
		log.Error("migrations failed", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	log.Info("forum store: postgres")
	ready := func() error { return pool.Ping(context.Background()) }
	return stores{
		posts:    store.NewPostgresPostStore(pool),
		comments: store.NewPostgresCommentStore(pool),
		users:    store.NewPostgresUserStore(pool),
	}, ready, pool.Close
}

// seedDevData loads a few users and posts so the API is explorable without a
// database.
func seedDevData(mem *store.InMemoryStore, log *zap.Logger) {
	ctx := context.Background()

	alice := mem.AddUser(store.User{Username: "alice", Email: "alice@example.com"})
	bob := mem.AddUser(store.User{Username: "bob", Email: "bob@example.com"})

	p, err := mem.CreatePost(ctx, store.NewPost{
		AuthorID: alice.ID,
		Title:    "How I prepared for backend interviews",
		Content:  "Sharing my three month preparation plan and the resources that helped.",
		Flair:    store.FlairInterviewExperience,
	})
	if err != nil {
		log.Warn("dev seed failed", zap.Error(err))
		return
	}
	if _, err := mem.CreateComment(ctx, store.NewComment{
		PostID:   p.ID,
		AuthorID: bob.ID,
		Content:  "Thanks for sharing, the system design section was the most useful part.",
	}); err != nil {
		log.Warn("dev seed failed", zap.Error(err))
		return
	}
	_, _ = mem.Vote(ctx, p.ID, bob.ID, store.VoteUp)

	log.Info("dev data seeded", zap.String("post_id", p.ID))
}
