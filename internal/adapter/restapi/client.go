// Package restapi is a client for the work record HTTP API.
package restapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"workrecords/internal/domain"
	"workrecords/internal/ports"
)

const basePath = "/api/v1/workrecords"

// Client implements ports.WorkRecordProvider against a running server.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

var _ ports.WorkRecordProvider = (*Client)(nil)

func NewClient(baseURL string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if log == nil {
		log = slog.Default()
	}
	c := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetBaseURL(strings.TrimRight(baseURL, "/"))
	return &Client{http: c, log: log}
}

// apiError mirrors the server's error body.
type apiError struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// List fetches one page of records.
// GET /api/v1/workrecords?queryType=...&query=...&offset=...&limit=...
func (c *Client) List(ctx context.Context, queryType, query string, offset, limit int) ([]domain.WorkRecord, error) {
	var out []domain.WorkRecord
	q := url.Values{}
	if queryType != "" {
		q.Set("queryType", queryType)
	}
	if query != "" {
		q.Set("query", query)
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	r, err := c.request(ctx).SetQueryParamsFromValues(q).SetResult(&out).Get(basePath)
	if err := c.check("list", r, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	r, err := c.request(ctx).SetResult(&out).Get(basePath + "/count")
	if err := c.check("count", r, err); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) Create(ctx context.Context, rec domain.WorkRecord) (domain.WorkRecord, error) {
	var out domain.WorkRecord
	r, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rec).
		SetResult(&out).
		Post(basePath)
	if err := c.check("create", r, err); err != nil {
		return domain.WorkRecord{}, err
	}
	return out, nil
}

func (c *Client) Read(ctx context.Context, id string) (domain.WorkRecord, error) {
	var out domain.WorkRecord
	r, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get(basePath + "/{id}")
	if err := c.check("read", r, err); err != nil {
		return domain.WorkRecord{}, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, rec domain.WorkRecord) (domain.WorkRecord, error) {
	var out domain.WorkRecord
	r, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(rec).
		SetResult(&out).
		Put(basePath + "/{id}")
	if err := c.check("update", r, err); err != nil {
		return domain.WorkRecord{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	r, err := c.request(ctx).SetPathParam("id", id).Delete(basePath + "/{id}")
	return c.check("delete", r, err)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&apiError{})
}

// check turns transport failures and error statuses into the domain error
// taxonomy so callers can branch on errors.Is.
func (c *Client) check(op string, r *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("workrecords %s: %w", op, err)
	}
	c.log.Debug("api call", slog.String("op", op), slog.String("url", r.Request.URL), slog.Int("status", r.StatusCode()))
	if !r.IsError() {
		return nil
	}
	msg := r.Status()
	if e, ok := r.Error().(*apiError); ok && e.Error != "" {
		msg = e.Error
	}
	switch r.StatusCode() {
	case http.StatusBadRequest:
		return &domain.ValidationError{Msg: msg}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, strings.TrimPrefix(msg, domain.ErrNotFound.Error()+": "))
	case http.StatusInternalServerError:
		return domain.ErrInternal
	default:
		return fmt.Errorf("workrecords %s: unexpected status %d: %s", op, r.StatusCode(), msg)
	}
}
