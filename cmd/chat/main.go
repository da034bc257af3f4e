// chat is a terminal client for the portfolio chatbot. It behaves like the
// site widget: idle tips while the chat is closed, one message in flight at a
// time, and a tip opt-out that survives restarts.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ehtisham33/portfolio/internal/widget"
)

type terminal struct {
	mu  sync.Mutex
	out *os.File
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// render prints a message with links spelled out.
func (t *terminal) render(m widget.Message) {
	var b strings.Builder
	for _, f := range widget.Linkify(m.Content) {
		b.WriteString(f.Text)
		if f.IsLink() && f.Href != f.Text {
			b.WriteString(" <" + f.Href + ">")
		}
	}
	who := "assistant"
	if m.Role == widget.RoleUser {
		who = "you"
	}
	t.printf("%s> %s\n", who, b.String())
}

func main() {
	defaultURL := os.Getenv("PORTFOLIO_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	defaultPrefs, err := widget.DefaultPrefsPath()
	if err != nil {
		defaultPrefs = "prefs.yaml"
	}

	baseURL := flag.String("url", defaultURL, "Portfolio server base URL")
	prefsPath := flag.String("prefs", defaultPrefs, "Preferences file")
	timeout := flag.Duration("timeout", 45*time.Second, "Request timeout")
	interval := flag.Duration("tip-interval", 15*time.Second, "Time between idle tips")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(zerolog.WarnLevel)

	prefs, err := widget.LoadPreferences(*prefsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load preferences: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	term := &terminal{out: os.Stdout}
	api := widget.NewAPIClient(*baseURL, *timeout)
	session := widget.NewSession(api, widget.Greeting)

	poller := widget.NewTipPoller(api, widget.PollerConfig{
		Interval: *interval,
		OnTip: func(tip widget.Tip) {
			term.printf("\n--- tip: %s ---\n%s\n--- (/tips off to stop) ---\n", tip.Title, tip.Code)
		},
		OnError: func(err error) {
			log.Warn().Err(err).Msg("tip fetch failed")
		},
	})
	defer poller.Close()

	open := false
	setOpen := func(v bool) {
		open = v
		poller.SetCondition(open, prefs.TipsDisabled())
	}
	setOpen(false)

	term.printf("Connected to %s. Type a message to open the chat, /close to hide it, /tips on|off, /quit.\n", *baseURL)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		switch cmd := strings.TrimSpace(line); cmd {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/open":
			if !open {
				setOpen(true)
				for _, m := range session.Messages() {
					term.render(m)
				}
			}
		case "/close":
			setOpen(false)
		case "/tips off":
			if err := prefs.DisableTips(); err != nil {
				log.Error().Err(err).Msg("failed to save preference")
			}
			setOpen(open)
			term.printf("Tips disabled.\n")
		case "/tips on":
			if err := prefs.EnableTips(); err != nil {
				log.Error().Err(err).Msg("failed to save preference")
			}
			setOpen(open)
			term.printf("Tips enabled.\n")
		default:
			if !open {
				setOpen(true)
				for _, m := range session.Messages() {
					term.render(m)
				}
			}
			pending.Add(1)
			go func(input string) {
				defer pending.Done()
				answer, err := session.Submit(ctx, input)
				switch {
				case errors.Is(err, widget.ErrBusy):
					term.printf("(still waiting for the previous reply)\n")
					return
				case errors.Is(err, widget.ErrEmptyInput):
					return
				case err != nil:
					log.Warn().Err(err).Msg("chat request failed")
				}
				term.render(answer)
			}(cmd)
		}
	}
}
