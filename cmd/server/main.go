package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/elli-study/elli/internal/api"
	"github.com/elli-study/elli/internal/config"
	"github.com/elli-study/elli/internal/db"
	"github.com/elli-study/elli/internal/llm"
	"github.com/elli-study/elli/internal/middleware"
	"github.com/elli-study/elli/internal/persist"
	"github.com/elli-study/elli/internal/services"
	"github.com/elli-study/elli/internal/session"
	"github.com/elli-study/elli/internal/sheet"
)

func main() {
	configPath := flag.String("config", os.Getenv("ELLI_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	commit := os.Getenv("ELLI_COMMIT")
	buildTime := os.Getenv("ELLI_BUILD_TIME")

	sheetStore, closeSheet, err := openSheet(cfg)
	if err != nil {
		log.Fatalf("open sheet store: %v", err)
	}
	defer closeSheet()

	rec := persist.NewAdapter(sheetStore)
	flusher, err := persist.NewFlusher(rec, cfg.FlushSchedule)
	if err != nil {
		log.Fatalf("flush schedule %q: %v", cfg.FlushSchedule, err)
	}
	flusher.Start()
	defer flusher.Stop()

	var lang llm.Service
	if cfg.LLM.APIKey != "" {
		opts := []llm.Option{llm.WithTimeout(cfg.LLMTimeout())}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.LLM.BaseURL))
		}
		lang = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, opts...)
	} else {
		log.Printf("OPENAI_API_KEY not set; running with rule-based fallbacks only")
	}

	sessions, err := openSessions(cfg)
	if err != nil {
		log.Fatalf("open session store: %v", err)
	}

	accounts, closeAccounts, err := openAccounts(cfg)
	if err != nil {
		log.Fatalf("open account store: %v", err)
	}
	defer closeAccounts()

	rt := api.NewRouter(
		services.NewIntakeService(lang, rec),
		services.NewStaticFormService(rec),
		services.NewAssignService(accounts.Assignments(), services.ConditionURLs{
			Chatbot: cfg.ChatbotURL,
			Static:  cfg.StaticURL,
		}),
		services.NewAuthService(accounts, middleware.SignToken),
		sessions,
		sheetStore,
	)

	mux := http.NewServeMux()
	rt.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Elli API",
			"store":      cfg.Store,
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("Elli server listening on %s (sheet=%s sessions=%s)", cfg.Addr, cfg.Store, cfg.Sessions)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openSheet(cfg config.Config) (sheet.Store, func(), error) {
	switch cfg.Store {
	case "", "memory":
		return sheet.NewMemoryStore(), func() {}, nil
	case "csv":
		s, err := sheet.NewCSVStore(cfg.SheetPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := sheet.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown sheet store %q", cfg.Store)
	}
}

func openSessions(cfg config.Config) (session.Store, error) {
	switch cfg.Sessions {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return session.NewRedisStore(client, session.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Sessions)
	}
}

// accountStore is whichever backend holds researchers and assignments.
type accountStore interface {
	services.ResearcherStore
	Assignments() services.AssignmentStore
}

func openAccounts(cfg config.Config) (accountStore, func(), error) {
	if cfg.Store == "sqlite" {
		s, err := db.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return db.NewMemoryStore(), func() {}, nil
}
