package main

import (
	"fmt"
	"net/http"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ehtisham33/portfolio/internal/metrics"
)

// mailSender matches smtp.SendMail so tests can capture outgoing mail.
type mailSender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var smtpSendMail mailSender = smtp.SendMail

func (s *server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", gin.H{
		"title": "Work with " + s.persona.FirstName(),
	})
}

func (s *server) handleContact(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("fullName"))
	email := strings.TrimSpace(c.PostForm("email"))
	message := strings.TrimSpace(c.PostForm("message"))

	if name == "" || message == "" {
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name and a message.",
		})
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		metrics.ContactMessages.WithLabelValues("invalid").Inc()
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please enter a valid email address.",
		})
		return
	}

	if err := s.sendContactEmail(name, email, message); err != nil {
		metrics.ContactMessages.WithLabelValues("failed").Inc()
		s.log.Error().Err(err).Msg("error sending contact email")
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	metrics.ContactMessages.WithLabelValues("sent").Inc()
	s.log.Info().Str("from", s.hashIP(c.ClientIP())).Msg("contact email sent")
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! " + s.persona.FirstName() + " will get back to you soon.",
	})
}

func (s *server) sendContactEmail(name, email, message string) error {
	cfg := s.cfg
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}

	// Header values come from the visitor; strip anything that could start a
	// new header line.
	name = stripNewlines(name)
	email = stripNewlines(email)

	subject := fmt.Sprintf("Portfolio Contact: %s", name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, message)

	msg := []byte("To: " + cfg.ToEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.SMTPUser + "\r\n" +
		"Reply-To: " + email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	if err := s.sendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, cfg.SMTPUser, []string{cfg.ToEmail}, msg); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}
	return nil
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
