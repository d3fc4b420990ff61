package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/sudo-init-do/tradelink/internal/config"
)

// ErrMailerUnavailable is returned while the Plunk breaker is open.
var ErrMailerUnavailable = errors.New("mail provider unavailable")

type plunkSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

// PlunkMailer posts to the Plunk send API behind a circuit breaker so a
// provider outage fails tasks fast and lets asynq retry later.
type PlunkMailer struct {
	apiKey  string
	apiURL  string
	from    string
	replyTo string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewPlunkMailer(cfg config.Mail, client *http.Client, log logrus.FieldLogger) *PlunkMailer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "plunk",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("mail breaker state changed")
		},
	})
	return &PlunkMailer{
		apiKey:  cfg.PlunkAPIKey,
		apiURL:  cfg.PlunkAPIURL,
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
		client:  client,
		cb:      cb,
	}
}

func (m *PlunkMailer) Send(ctx context.Context, to, subject, body string) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		return nil, m.post(ctx, to, subject, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrMailerUnavailable, err)
	}
	return err
}

func (m *PlunkMailer) post(ctx context.Context, to, subject, body string) error {
	b, err := json.Marshal(plunkSendBody{To: to, Subject: subject, Body: body, From: m.from, Reply: m.replyTo})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(msg) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, msg)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}
