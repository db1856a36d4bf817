package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"windshield-quiz-service/internal/app"
)

const defaultCallbackTimeout = 5 * time.Second

var errBlockedCallback = errors.New("callback address not allowed")

// PartnerCallback POSTs a completed result to the URL a partner registered
// when embedding the widget. Each result is attempted once. Only http(s) URLs
// resolving to public addresses are contacted.
type PartnerCallback struct {
	client *http.Client
}

func NewPartnerCallback(timeout time.Duration) *PartnerCallback {
	return newPartnerCallback(timeout, false)
}

func newPartnerCallback(timeout time.Duration, allowPrivate bool) *PartnerCallback {
	if timeout <= 0 {
		timeout = defaultCallbackTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	if !allowPrivate {
		dialer.Control = publicOnly
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &PartnerCallback{client: &http.Client{Timeout: timeout, Transport: transport}}
}

// Notify implements app.PartnerNotifier. Any non-2xx response is an error.
func (p *PartnerCallback) Notify(ctx context.Context, callbackURL string, payload app.PartnerResult) error {
	u, err := url.Parse(callbackURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", errBlockedCallback, callbackURL)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal partner payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build partner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post partner callback: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("partner callback returned %s", resp.Status)
	}
	return nil
}

// publicOnly runs after DNS resolution, so redirects and rebinding are
// checked against the address actually dialed.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", errBlockedCallback, host)
	}
	return nil
}
