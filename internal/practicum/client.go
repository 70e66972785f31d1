// Package practicum is the HTTP client for the homework review API.
package practicum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

const (
	DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultTimeout  = 30 * time.Second

	// FromDateParam carries the cursor.
	FromDateParam = "from_date"
)

var ErrTrailingData = errors.New("trailing data after response body")

var ErrUnexpectedStatus = errors.New("unexpected http status")

type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: cfg.Timeout}}
}

// Endpoint returns the effective endpoint URL.
func (c *Client) Endpoint() string { return c.cfg.Endpoint }

// Statuses fetches homework statuses changed since fromDate (unix seconds) and
// returns the decoded body. Numbers in the body are json.Number.
//
// Errors are *homework.Error: KindTransport for network failures and non-2xx
// answers, KindParse for a 2xx body that isn't valid JSON.
func (c *Client) Statuses(ctx context.Context, fromDate int64) (any, error) {
	const op = "get api answer"

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		c.log.Error("invalid endpoint", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		return nil, homework.Wrap(homework.KindTransport, op, err)
	}
	q := u.Query()
	q.Set(FromDateParam, strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, homework.Wrap(homework.KindTransport, op, err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error("api request failed", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		}
		return nil, homework.Wrap(homework.KindTransport, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("endpoint unavailable",
			logx.String("endpoint", c.cfg.Endpoint),
			logx.Int("status", resp.StatusCode),
			logx.String("body", strings.TrimSpace(string(snippet))),
		)
		return nil, homework.Wrap(homework.KindTransport, op, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		c.log.Error("api response is not valid json", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		return nil, homework.Wrap(homework.KindParse, op, fmt.Errorf("decode body: %w", err))
	}
	if err := expectEOF(dec); err != nil {
		c.log.Error("api response is not valid json", logx.String("endpoint", c.cfg.Endpoint), logx.Err(err))
		return nil, homework.Wrap(homework.KindParse, op, err)
	}

	c.log.Debug("api answer received",
		logx.Int("status", resp.StatusCode),
		logx.Int64(FromDateParam, fromDate),
		logx.Duration("took", time.Since(start)),
	)
	return body, nil
}

// expectEOF fails when anything but whitespace follows the first JSON value.
func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return fmt.Errorf("decode body: %w", err)
	default:
		return ErrTrailingData
	}
}
