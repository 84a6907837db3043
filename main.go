package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"spotauth-srv/internal/database"
	"spotauth-srv/internal/musicbrainz"
	"spotauth-srv/internal/patterns"
	"spotauth-srv/internal/profile"
	"spotauth-srv/internal/shazam"
	"spotauth-srv/internal/spotify"
	"spotauth-srv/internal/verify"
)

/* =========================
   Recovery Middleware
   ========================= */

func RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %v\n%s", err, debug.Stack())
				writeError(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

/* =========================
   Types
   ========================= */

type VerifyRequest struct {
	Query  string `json:"query"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

/* =========================
   Handler
   ========================= */

func handleVerify(engine *verify.Engine, w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")

	token := bearerToken(r)

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" && req.Title != "" {
		query = strings.TrimSpace(req.Title)
		if req.Artist != "" {
			query += " - " + strings.TrimSpace(req.Artist)
		}
	}

	result, err := engine.Verify(r.Context(), query, token)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrMissingQuery):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, spotify.ErrMissingToken):
			writeError(w, err.Error(), http.StatusUnauthorized)
		case errors.Is(err, spotify.ErrTrackNotFound):
			writeError(w, err.Error(), http.StatusNotFound)
		default:
			log.Printf("verification error: %v", err)
			writeError(w, "Error searching track", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

/* =========================
   Main
   ========================= */

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	shazamKey := os.Getenv("SHAZAM_API_KEY")
	if shazamKey == "" {
		log.Println("WARNING: SHAZAM_API_KEY not set; recognition lookups will degrade")
	}

	// Pattern and profile rule tables, overridable without code changes.
	rules := patterns.Default()
	if path := os.Getenv("PATTERN_RULES_FILE"); path != "" {
		loaded, err := patterns.LoadFile(path)
		if err != nil {
			log.Fatalf("CRITICAL: loading %s: %v", path, err)
		}
		rules = loaded
	}

	profileCfg := profile.DefaultConfig()
	if path := os.Getenv("PROFILE_RULES_FILE"); path != "" {
		loaded, err := profile.LoadConfig(path)
		if err != nil {
			log.Fatalf("CRITICAL: loading %s: %v", path, err)
		}
		profileCfg = loaded
	}

	// Lookup cache. Losing it only costs repeat upstream calls, so a failed
	// open downgrades to running without one.
	var db *sql.DB
	dbPath := os.Getenv("CACHE_DB")
	if dbPath == "" {
		dbPath = "./data/cache.db"
	}
	if dbPath != "off" {
		_ = os.MkdirAll(filepath.Dir(dbPath), 0755)
		opened, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
		if err != nil {
			log.Printf("WARNING: cache unavailable: %v", err)
		} else if err := database.InitDatabase(opened); err != nil {
			log.Printf("WARNING: cache schema init failed: %v", err)
			opened.Close()
		} else {
			db = opened
			defer db.Close()
		}
	}

	mbClient := musicbrainz.NewClient(musicbrainz.NewLimiter())
	mbClient.Username = os.Getenv("MUSICBRAINZ_USER")
	mbClient.Password = os.Getenv("MUSICBRAINZ_PASS")

	engine := &verify.Engine{
		Catalog:       spotify.NewAdapter(),
		Shazam:        shazam.NewClient(shazamKey),
		MusicBrainz:   mbClient,
		Rules:         rules,
		ProfileConfig: profileCfg,
		DB:            db,
	}

	http.HandleFunc("/api/v1/verify", RecoveryMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodOptions {
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleVerify(engine, w, r)
	}))

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("SpotAuth verification engine listening on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
