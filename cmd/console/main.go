// Command console runs the college-management admin console's
// authentication front end: it drives the authorization code login
// against the configured provider, keeps the session across restarts
// and serves a minimal dashboard showing the signed-in user.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aadarsha3/cms-test/api"
	"github.com/Aadarsha3/cms-test/auth"
	"github.com/Aadarsha3/cms-test/auth/callback"
	"github.com/Aadarsha3/cms-test/oidc"
	"github.com/Aadarsha3/cms-test/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
)

// Configuration environment variables.
const (
	envIssuer         = "CMS_ISSUER"
	envClientID       = "CMS_CLIENT_ID"
	envClientSecret   = "CMS_CLIENT_SECRET"
	envListen         = "CMS_LISTEN"
	envBaseURL        = "CMS_BASE_URL"
	envProviderCA     = "CMS_PROVIDER_CA"
	envSessionBackend = "CMS_SESSION_BACKEND"
	envSessionFile    = "CMS_SESSION_FILE"
	envAPIBase        = "CMS_API_BASE"
)

type consoleConfig struct {
	issuer         string
	clientID       string
	clientSecret   oidc.ClientSecret
	listen         string
	baseURL        string
	providerCA     string
	sessionBackend string
	sessionFile    string
	apiBase        string
}

func envConfig() (*consoleConfig, error) {
	const op = "envConfig"
	c := &consoleConfig{
		issuer:         os.Getenv(envIssuer),
		clientID:       os.Getenv(envClientID),
		clientSecret:   oidc.ClientSecret(os.Getenv(envClientSecret)),
		listen:         os.Getenv(envListen),
		baseURL:        os.Getenv(envBaseURL),
		providerCA:     os.Getenv(envProviderCA),
		sessionBackend: os.Getenv(envSessionBackend),
		sessionFile:    os.Getenv(envSessionFile),
		apiBase:        os.Getenv(envAPIBase),
	}
	if c.issuer == "" {
		return nil, fmt.Errorf("%s: %s is empty", op, envIssuer)
	}
	if c.clientID == "" {
		return nil, fmt.Errorf("%s: %s is empty", op, envClientID)
	}
	if c.listen == "" {
		c.listen = "localhost:8080"
	}
	if c.baseURL == "" {
		c.baseURL = "http://" + c.listen
	}
	if c.sessionBackend == "" {
		c.sessionBackend = "file"
	}
	if c.sessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.sessionFile = home + "/.college-console-session.json"
	}
	return c, nil
}

func newStorage(c *consoleConfig) (session.Storage, error) {
	const op = "newStorage"
	switch c.sessionBackend {
	case "memory":
		return session.NewMemoryStorage(), nil
	case "file":
		return session.NewFileStorage(c.sessionFile)
	case "keyring":
		return session.NewKeyringStorage(""), nil
	default:
		return nil, fmt.Errorf("%s: unknown session backend %q", op, c.sessionBackend)
	}
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "console",
		Level: hclog.LevelFromString(os.Getenv("CMS_LOG_LEVEL")),
	})

	cfg, err := envConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var opts []oidc.Option
	if cfg.providerCA != "" {
		opts = append(opts, oidc.WithProviderCA(cfg.providerCA))
	}
	pc, err := oidc.NewConfig(cfg.issuer, cfg.clientID, cfg.clientSecret,
		[]oidc.Alg{oidc.RS256, oidc.ES256}, cfg.baseURL+"/oauth2/callback", opts...)
	if err != nil {
		logger.Error("invalid provider configuration", "error", err)
		os.Exit(1)
	}
	provider, err := oidc.NewProvider(pc)
	if err != nil {
		logger.Error("unable to create provider", "error", err)
		os.Exit(1)
	}
	defer provider.Done()

	storage, err := newStorage(cfg)
	if err != nil {
		logger.Error("unable to create session storage", "error", err)
		os.Exit(1)
	}
	store, err := session.NewStore(storage,
		session.WithStoreLogger(logger.Named("session")),
		session.WithLogoutURL(provider.LogoutURL, cfg.baseURL+"/login"),
	)
	if err != nil {
		logger.Error("unable to create session store", "error", err)
		os.Exit(1)
	}
	flow, err := auth.NewFlow(provider, store, auth.WithFlowLogger(logger.Named("auth")))
	if err != nil {
		logger.Error("unable to create login flow", "error", err)
		os.Exit(1)
	}
	apiClient, err := api.NewClient(store,
		api.WithTransportLogger(logger.Named("api")),
		api.WithOnUnauthorized(func(context.Context) {
			logger.Warn("backend rejected the session; user must log in again")
		}),
	)
	if err != nil {
		logger.Error("unable to create api client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cb, err := callback.AuthCode(ctx, flow,
		func(result *auth.Result, w http.ResponseWriter, req *http.Request) {
			logger.Info("login completed", "user", result.User.UserID, "role", result.User.Role)
			http.Redirect(w, req, "/dashboard", http.StatusFound)
		},
		func(authenErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
			if authenErr != nil {
				logger.Error("provider reported login failure", "code", authenErr.Error)
			} else {
				logger.Error("login failed", "error", e)
			}
			http.Redirect(w, req, "/login?error=auth_failed", http.StatusFound)
		},
	)
	if err != nil {
		logger.Error("unable to create callback handler", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/login", func(w http.ResponseWriter, req *http.Request) {
		authURL, err := flow.BeginLogin(req.Context())
		if err != nil {
			logger.Error("unable to start login", "error", err)
			http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	})
	r.Get("/oauth2/callback", cb)
	r.Get("/logout", func(w http.ResponseWriter, req *http.Request) {
		logoutURL, err := store.Clear(req.Context())
		if err != nil {
			logger.Error("unable to clear session", "error", err)
		}
		if logoutURL != "" {
			http.Redirect(w, req, logoutURL, http.StatusFound)
			return
		}
		http.Redirect(w, req, "/login", http.StatusFound)
	})
	r.Get("/dashboard", func(w http.ResponseWriter, req *http.Request) {
		_, user, err := store.Load(req.Context())
		if err != nil {
			http.Redirect(w, req, "/login", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(user); err != nil {
			logger.Error("unable to write dashboard response", "error", err)
		}
	})
	if cfg.apiBase != "" {
		// demo business call: fetch the user list from the backend with
		// the session's bearer token attached
		r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
			backendReq, err := http.NewRequestWithContext(req.Context(),
				http.MethodGet, cfg.apiBase+"/users", nil)
			if err != nil {
				http.Error(w, "bad backend request", http.StatusInternalServerError)
				return
			}
			resp, err := apiClient.Do(backendReq)
			if err != nil {
				logger.Error("backend call failed", "error", err)
				http.Error(w, "backend unavailable", http.StatusBadGateway)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				// the transport already cleared the session
				http.Redirect(w, req, "/login", http.StatusFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.StatusCode)
			if _, err := io.Copy(w, resp.Body); err != nil {
				logger.Error("unable to relay backend response", "error", err)
			}
		})
	}
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/dashboard", http.StatusFound)
	})

	srv := &http.Server{
		Addr:              cfg.listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("console listening", "addr", cfg.listen, "issuer", cfg.issuer)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server closed", "error", err)
		os.Exit(1)
	}
}
