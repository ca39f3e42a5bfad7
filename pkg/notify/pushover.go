package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/retry"
	"github.com/solitary-pixels/hotspotx/pkg/status"
	"github.com/solitary-pixels/hotspotx/pkg/utils"
)

// DefaultPushoverEndpoint is the Pushover message API.
const DefaultPushoverEndpoint = "https://api.pushover.net/1/messages.json"

// ErrNotConfigured is returned when required Pushover tokens are missing.
var ErrNotConfigured = errors.New("pushover not configured")

// PushoverOpts configures a Pushover notifier.
//
// ReportToken and UserToken are required. AlertToken falls back to
// ReportToken and GroupToken falls back to UserToken.
type PushoverOpts struct {
	ReportToken string
	AlertToken  string
	UserToken   string
	GroupToken  string
	Endpoint    string
	Timeout     time.Duration
	Retry       retry.Config
}

// Pushover sends status changes with the alert app token and periodic
// reports with the report app token.
type Pushover struct {
	endpoint    string
	reportToken string
	alertToken  string
	recipient   string
	client      *http.Client
	retry       retry.Config
	logger      *zap.Logger
}

// NewPushover validates opts and returns a notifier.
func NewPushover(opts PushoverOpts, logger *zap.Logger) (*Pushover, error) {
	if opts.ReportToken == "" || opts.UserToken == "" {
		return nil, ErrNotConfigured
	}
	if opts.AlertToken == "" {
		opts.AlertToken = opts.ReportToken
	}
	if opts.GroupToken == "" {
		opts.GroupToken = opts.UserToken
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultPushoverEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	return &Pushover{
		endpoint:    opts.Endpoint,
		reportToken: opts.ReportToken,
		alertToken:  opts.AlertToken,
		recipient:   opts.GroupToken,
		client:      &http.Client{Timeout: opts.Timeout},
		retry:       opts.Retry,
		logger:      logging.OrNop(logger),
	}, nil
}

// tokenFor picks the app token for the message kind.
func (p *Pushover) tokenFor(reason status.Reason) string {
	if reason == status.ReasonChanged {
		return p.alertToken
	}
	return p.reportToken
}

// Send posts msg, retrying transport and 5xx failures.
func (p *Pushover) Send(ctx context.Context, msg Message) error {
	form := url.Values{
		"token":   {p.tokenFor(msg.Reason)},
		"user":    {p.recipient},
		"title":   {msg.Title},
		"message": {msg.Body},
	}
	return retry.WithBackoff(ctx, p.retry, p.logger, "pushover send", func() error {
		return p.post(ctx, form)
	})
}

func (p *Pushover) post(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	var body struct {
		Status  int      `json:"status"`
		Request string   `json:"request"`
		Errors  []string `json:"errors"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("pushover server %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		// Bad tokens or payload will not fix themselves.
		return retry.Permanent(fmt.Errorf("pushover rejected message: %d %s", resp.StatusCode, strings.Join(body.Errors, "; ")))
	case body.Status != 1:
		return fmt.Errorf("pushover status %d", body.Status)
	}

	p.logger.Info("notification sent", zap.String("request", body.Request))
	return nil
}
