// admin.go - privacy-conscious visitor tracking and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

func generateAdminToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("failed to generate admin token: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}

// hashIP is consistent per IP for the lifetime of the process.
func (s *server) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + s.hashingSalt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (s *server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTrackingMiddleware records page views with a hashed IP. Static
// assets, admin pages, API calls and the probes are skipped, and so are
// visitors sending Do Not Track.
func (s *server) visitorTrackingMiddleware() gin.HandlerFunc {
	skip := []string{"/static/", "/images/", "/admin", "/favicon", "/privacy", "/metrics", "/health", "/api/", "/chat", "/tip"}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skip {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if c.GetHeader("DNT") == "1" || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		go s.trackVisitor(s.hashIP(c.ClientIP()), c.GetHeader("User-Agent"), path, time.Now())
		c.Next()
	}
}

func (s *server) trackVisitor(hashedIP, userAgent, path string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.RecordVisit(ctx, hashedIP, userAgent, path, at); err != nil {
		s.log.Warn().Err(err).Msg("error recording visitor")
	}
}

// adminCredentials falls back to admin/admin123 only in development.
func (s *server) adminCredentials() (string, string, bool) {
	user, pass := s.cfg.AdminUsername, s.cfg.AdminPassword
	if user != "" && pass != "" {
		return user, pass, true
	}
	if !s.cfg.IsDevelopment() {
		return "", "", false
	}
	if user == "" {
		user = "admin"
		s.log.Warn().Msg("using default admin username, set ADMIN_USERNAME")
	}
	if pass == "" {
		pass = "admin123"
		s.log.Warn().Msg("using default admin password, set ADMIN_PASSWORD")
	}
	return user, pass, true
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
			"name":  s.persona.Name,
			"email": s.persona.Email,
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		wantUser, wantPass, ok := s.adminCredentials()
		if ok &&
			subtle.ConstantTimeCompare([]byte(username), []byte(wantUser)) == 1 &&
			subtle.ConstantTimeCompare([]byte(password), []byte(wantPass)) == 1 {
			c.SetCookie(adminCookie, s.adminToken, 3600*24, "/admin", "", !s.cfg.IsDevelopment(), true)
			s.log.Info().Str("from", s.hashIP(c.ClientIP())).Msg("admin login successful")
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		s.log.Warn().
			Str("type", "security").
			Str("from", s.hashIP(c.ClientIP())).
			Msg("failed admin login attempt")
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		s.log.Info().Str("from", s.hashIP(c.ClientIP())).Msg("admin logout")
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to load admin statistics")
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":       stats,
			"chatEnabled": s.chat.Configured(),
			"provider":    s.cfg.LLMProvider,
			"model":       s.cfg.LLMModel,
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	adminGroup.POST("/privacy/cleanup", func(c *gin.Context) {
		n, err := s.store.CleanupVisitors(c.Request.Context(), time.Now().AddDate(-1, 0, 0))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "deleted": n})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.log.Info().Str("by", s.hashIP(c.ClientIP())).Msg("admin stats exported")
		c.JSON(http.StatusOK, stats)
	})
}
