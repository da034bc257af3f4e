package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Ehtisham33/portfolio/internal/store"
)

func postForm(r http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHashIP(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	a := s.hashIP("203.0.113.7")
	if len(a) != 16 {
		t.Errorf("expected a 16 char hash, got %q", a)
	}
	if a != s.hashIP("203.0.113.7") {
		t.Error("hash must be stable per IP")
	}
	if a == s.hashIP("203.0.113.8") {
		t.Error("different IPs should hash differently")
	}
	if strings.Contains(a, "203") {
		t.Error("hash leaks the raw IP")
	}
}

func TestAdminLoginFlow(t *testing.T) {
	s, r := newTestServer(t, nil, nil)

	// Protected pages redirect without the cookie.
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d %s", rr.Code, rr.Header().Get("Location"))
	}

	rr = postForm(r, "/admin/login", url.Values{"username": {"root"}, "password": {"wrong"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rr.Code)
	}

	rr = postForm(r, "/admin/login", url.Values{"username": {"root"}, "password": {"s3cret"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect after login, got %d", rr.Code)
	}
	var token *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == adminCookie {
			token = c
		}
	}
	if token == nil || token.Value != s.adminToken {
		t.Fatalf("expected admin cookie, got %+v", rr.Result().Cookies())
	}

	// Seed usage so the dashboard has something to show.
	ctx := t.Context()
	if err := s.store.RecordChat(ctx, outcomeSuccess, 2, 300*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := s.store.RecordTip(ctx, "fallback", "Python: Dict default value"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil)
	req.AddCookie(token)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var stats store.AdminStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalChats != 1 || stats.TipsServed != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(token)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Total chats: 1") {
		t.Errorf("unexpected dashboard %d %s", rr.Code, rr.Body.String())
	}
}

func TestAdminLoginDisabledInProductionWithoutCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.AdminUsername, cfg.AdminPassword = "", ""
	_, r := newTestServer(t, nil, cfg)

	rr := postForm(r, "/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("default credentials must not work in production, got %d", rr.Code)
	}
}

func TestVisitorTracking(t *testing.T) {
	s, r := newTestServer(t, nil, nil)

	page := func(path, dnt string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "198.51.100.4:5555"
		if dnt != "" {
			req.Header.Set("DNT", dnt)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	page("/", "")
	page("/", "1")            // Do Not Track
	page("/health", "")       // probe
	page("/admin/login", "")  // admin
	page("/contact-form", "") // tracked

	var visitors []store.VisitorMetric
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var err error
		if visitors, err = s.store.RecentVisitors(t.Context(), 10); err != nil {
			t.Fatal(err)
		}
		if len(visitors) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	visitors, _ = s.store.RecentVisitors(t.Context(), 10)

	if len(visitors) != 2 {
		t.Fatalf("expected 2 tracked visits, got %d", len(visitors))
	}
	for _, v := range visitors {
		if v.HashedIP != s.hashIP("198.51.100.4") {
			t.Errorf("expected hashed IP, got %q", v.HashedIP)
		}
	}
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func TestContactForm(t *testing.T) {
	cfg := testConfig()
	cfg.SMTPUser, cfg.SMTPPass = "site@example.com", "app-password"
	s, r := newTestServer(t, nil, cfg)

	var sent []capturedMail
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}

	rr := postForm(r, "/contact", url.Values{
		"fullName": {"Jane\r\nBcc: spam@example.com"},
		"email":    {"jane@example.com"},
		"message":  {"We need a RAG chatbot."},
	})
	if !strings.Contains(rr.Body.String(), "Thank you for your message") {
		t.Fatalf("expected success fragment, got %s", rr.Body.String())
	}
	if len(sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(sent))
	}
	m := sent[0]
	if m.addr != "smtp.example.com:587" || m.to[0] != "owner@example.com" {
		t.Errorf("unexpected envelope %+v", m)
	}
	if strings.Contains(m.msg, "\r\nBcc:") {
		t.Error("header injection via name was not neutralized")
	}
	if !strings.Contains(m.msg, "Reply-To: jane@example.com") {
		t.Error("expected Reply-To header")
	}
}

func TestContactForm_Errors(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		smtpOK bool
		want   string
	}{
		{"missing name", url.Values{"email": {"a@b.co"}, "message": {"hi"}}, true, "fill in your name"},
		{"bad email", url.Values{"fullName": {"A"}, "email": {"nope"}, "message": {"hi"}}, true, "valid email"},
		{"smtp failure", url.Values{"fullName": {"A"}, "email": {"a@b.co"}, "message": {"hi"}}, false, "error sending your message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.SMTPUser, cfg.SMTPPass = "site@example.com", "app-password"
			s, r := newTestServer(t, nil, cfg)
			s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
				if tt.smtpOK {
					return nil
				}
				return errors.New("535 authentication failed")
			}

			rr := postForm(r, "/contact", tt.form)
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("expected %q in %s", tt.want, rr.Body.String())
			}
		})
	}
}
