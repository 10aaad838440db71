package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cyp0633/calseries/server"
	authmem "github.com/cyp0633/calseries/server/auth/memory"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
	"github.com/cyp0633/calseries/server/storage/memory"
	"github.com/samber/mo"
)

const (
	// Server configuration
	serverAddr  = ":8080"
	apiPrefix   = "/api"
	serverRealm = "calseries example"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	engine := recurrence.NewEngineWithConfig(recurrence.EngineConfig{
		MaxOccurrences: recurrence.DefaultMaxOccurrences,
		CacheEnabled:   true,
		CacheConfig:    recurrence.DefaultCacheConfig,
		Logger:         logger,
	})
	defer engine.Close()

	store := series.NewDocumentStore(memory.New(), series.WithStoreLogger(logger))
	svc := series.NewService(store, engine, series.WithLogger(logger))

	users := setupUsers(logger)
	seed(svc, logger)

	handler, err := server.New(svc,
		server.WithLogger(logger),
		server.WithBasePath(apiPrefix),
		server.WithAuthenticator(users, serverRealm))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(apiPrefix+"/", handler)
	mux.HandleFunc("/", handleRoot)

	logger.Info("Starting series server", "addr", serverAddr, "api", "http://localhost"+serverAddr+apiPrefix)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// handleRoot provides a basic landing page with instructions
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(`calseries example server

Users: alice/alice (read-write), bob/bob (read-only)

  curl -u alice:alice localhost:8080/api/events?date=` + time.Now().Format(time.DateOnly) + `
  curl -u alice:alice localhost:8080/api/events
`))
}

func setupUsers(logger *slog.Logger) *authmem.Store {
	users := authmem.New(authmem.WithLogger(logger))
	for _, u := range []authmem.User{
		{Username: "alice", Password: "alice", Handle: "Alice"},
		{Username: "bob", Password: "bob", Handle: "Bob", ReadOnly: true},
	} {
		if err := users.AddUser(u); err != nil {
			logger.Error("failed to add user", "user", u.Username, "error", err)
		}
	}
	return users
}

// seed creates a weekday stand-up series for alice starting today
func seed(svc *series.Service, logger *slog.Logger) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, time.Local)

	res, err := svc.CreateEventSeries(context.Background(), series.CreateSeriesRequest{
		Name: "Stand-up",
		Rule: recurrence.Rule{
			Type:     recurrence.Weekly,
			Interval: 1,
			DaysOfWeek: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
			},
			EndType:          recurrence.EndAfterOccurrences,
			OccurrencesCount: mo.Some(20),
		},
		Event: series.EventData{Title: "Stand-up", Location: "Room 4"},
		Start: start,
		End:   start.Add(15 * time.Minute),
		Owner: series.Owner{ID: "alice", Handle: "Alice"},
	})
	if err != nil {
		logger.Error("failed to seed series", "error", err)
		return
	}
	logger.Info("seeded series", "series_id", res.Series.ID, "occurrences", len(res.Occurrences))
}
