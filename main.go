package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Ehtisham33/portfolio/internal/assistant"
	"github.com/Ehtisham33/portfolio/internal/config"
	"github.com/Ehtisham33/portfolio/internal/llm"
	"github.com/Ehtisham33/portfolio/internal/logger"
	"github.com/Ehtisham33/portfolio/internal/middleware"
	"github.com/Ehtisham33/portfolio/internal/persona"
	"github.com/Ehtisham33/portfolio/internal/store"
	"github.com/Ehtisham33/portfolio/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxBodyBytes = 64 << 10

// server carries everything the handlers need.
type server struct {
	cfg     *config.Config
	log     zerolog.Logger
	persona *persona.Persona
	page    pageContent
	chat    *assistant.ChatService
	tips    *assistant.TipService
	store   *store.Store
	limiter middleware.Limiter

	adminToken  string
	hashingSalt string
	sendMail    mailSender
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, os.Stdout)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := persona.Load(cfg.PersonaFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PersonaFile).Msg("failed to load persona")
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer st.Close()

	completer, closeCompleter, err := newCompleter(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLMProvider).Msg("failed to create completion client")
	}
	defer closeCompleter()

	s, err := newServer(cfg, log, p, completer, st, newLimiter(ctx, cfg, log))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	go s.retentionLoop(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(s),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("provider", cfg.LLMProvider).
			Str("model", cfg.LLMModel).
			Bool("chat_enabled", cfg.ChatEnabled()).
			Msg("starting portfolio server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}

// newServer wires the chat and tip services. A nil completer leaves both
// unconfigured; the site still serves and the chatbot answers with apologies.
func newServer(cfg *config.Config, log zerolog.Logger, p *persona.Persona, completer llm.Completer, st *store.Store, limiter middleware.Limiter) (*server, error) {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		var err error
		if systemPrompt, err = p.SystemPrompt(); err != nil {
			return nil, err
		}
	}
	tipPrompt, err := p.TipPrompt()
	if err != nil {
		return nil, err
	}

	if completer == nil {
		log.Warn().Msg("no completion API key configured, chatbot will answer with a configuration apology")
	}

	s := &server{
		cfg:     cfg,
		log:     log,
		persona: p,
		page:    newPageContent(p),
		chat: assistant.NewChatService(completer, systemPrompt, assistant.ChatOptions{
			Temperature: cfg.ChatTemp,
			MaxTokens:   cfg.ChatMaxTokens,
		}),
		tips: assistant.NewTipService(completer, tipPrompt, assistant.TipOptions{
			Temperature: cfg.TipTemp,
			MaxTokens:   cfg.TipMaxTokens,
		}),
		store:       st,
		limiter:     limiter,
		adminToken:  generateAdminToken(),
		hashingSalt: generateAdminToken(),
		sendMail:    smtpSendMail,
	}

	log.Info().Msg("admin access available at /admin/login")
	if cfg.IsDevelopment() {
		log.Debug().Str("token", s.adminToken).Msg("admin token (dev only)")
	}
	return s, nil
}

// newCompleter picks the provider client. No key means no client.
func newCompleter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (llm.Completer, func(), error) {
	noop := func() {}
	if !cfg.ChatEnabled() {
		return nil, noop, nil
	}

	switch cfg.LLMProvider {
	case "gemini":
		c, err := llm.NewGeminiClient(ctx, cfg.LLMAPIKey, cfg.LLMModel, log)
		if err != nil {
			return nil, noop, err
		}
		return c, func() { c.Close() }, nil
	case "openai", "groq", "":
		return llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, log), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// newLimiter prefers Redis so every instance shares one window, and falls
// back to an in-process limiter.
func newLimiter(ctx context.Context, cfg *config.Config, log zerolog.Logger) middleware.Limiter {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory rate limiter")
		} else {
			client := redis.NewClient(opts)
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Warn().Err(err).Msg("redis unreachable, using in-memory rate limiter")
				client.Close()
			} else {
				log.Info().Msg("connected to Redis")
				return middleware.NewRedisLimiter(client, cfg.ChatRateLimit, time.Minute)
			}
		}
	}
	return middleware.NewMemoryLimiter(cfg.ChatRateLimit, time.Minute)
}

func loadTemplates() *template.Template {
	funcs := template.FuncMap{
		"linkify": widget.LinkifyHTML,
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(loadTemplates())

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.log))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(s.visitorTrackingMiddleware())

	r.GET("/", s.handleIndex)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "chat_enabled": s.chat.Configured()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatLimit := middleware.RateLimit(s.limiter, s.log, rejectChatJSON)
	fragmentLimit := middleware.RateLimit(s.limiter, s.log, s.rejectChatFragment)

	// JSON API, also mounted under /api for separately hosted frontends.
	for _, g := range []*gin.RouterGroup{r.Group("/"), r.Group("/api")} {
		g.Use(middleware.CORS(), middleware.MaxBodySize(maxBodyBytes))
		g.OPTIONS("/chat", func(c *gin.Context) {})
		g.OPTIONS("/tip", func(c *gin.Context) {})
		g.POST("/chat", chatLimit, s.handleChat)
		g.GET("/tip", s.handleTip)
	}

	// HTMX fragments
	r.POST("/chat/fragment", middleware.MaxBodySize(maxBodyBytes), fragmentLimit, s.handleChatFragment)
	r.GET("/tip/fragment", s.handleTipFragment)
	r.POST("/tips/disable", s.handleTipsDisable)
	r.POST("/tips/enable", s.handleTipsEnable)
	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", middleware.MaxBodySize(maxBodyBytes), s.handleContact)

	s.setupAdminRoutes(r)
	return r
}

func (s *server) handleIndex(c *gin.Context) {
	greeting := []widget.Message{{Role: widget.RoleAssistant, Content: widget.Greeting}}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"page":         s.page,
		"messages":     greeting,
		"history":      greeting,
		"loading":      true,
		"tipsDisabled": tipsDisabled(c),
		"chatEnabled":  s.chat.Configured(),
	})
}

// retentionLoop deletes visitor rows older than 12 months at start and then
// daily.
func (s *server) retentionLoop(ctx context.Context) {
	cleanup := func() {
		n, err := s.store.CleanupVisitors(ctx, time.Now().AddDate(-1, 0, 0))
		if err != nil {
			s.log.Error().Err(err).Msg("visitor retention cleanup failed")
			return
		}
		if n > 0 {
			s.log.Info().Int64("deleted", n).Msg("privacy cleanup removed visitor records older than 12 months")
		}
	}

	cleanup()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanup()
		}
	}
}
