package servicenow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
	"github.com/custodia-labs/kb-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TicketSource = (*Client)(nil)

const (
	incidentPath = "/api/now/table/incident"
	ticketFields = "number,short_description,description,close_notes,sys_created_on,opened_at"
	isoLayout    = "2006-01-02T15:04:05Z"
)

// Client queries the ServiceNow Table API for resolved incidents.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new ServiceNow client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: servicenow base url is required", domain.ErrInvalidInput)
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger.With("component", "servicenow"),
	}, nil
}

// record is one incident as returned with sysparm_display_value=true.
type record struct {
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	CloseNotes       string `json:"close_notes"`
	SysCreatedOn     string `json:"sys_created_on"`
}

type tableResponse struct {
	Result []record `json:"result"`
}

// FetchSince runs one bounded query for incidents created after since.
func (c *Client) FetchSince(ctx context.Context, since domain.Checkpoint) (*domain.TicketBatch, error) {
	since = since.OrDefault()
	datePart, clockPart := since.DateAndClock()

	q := url.Values{}
	q.Set("sysparm_query", fmt.Sprintf(
		"state=%d^close_notesISNOTEMPTY^sys_created_on>javascript:gs.dateGenerate('%s','%s')^ORDERBYDESCnumber",
		c.cfg.State, datePart, clockPart))
	q.Set("sysparm_fields", ticketFields)
	q.Set("sysparm_limit", strconv.Itoa(c.cfg.Limit))
	q.Set("sysparm_display_value", "true")
	q.Set("sysparm_exclude_reference_link", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+incidentPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ticket fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("ticket fetch rejected", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error("ticket response undecodable", "error", err)
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrSourceUnavailable, err)
	}

	if len(payload.Result) == 0 {
		c.logger.Info("no new tickets found", "since", since)
		return domain.NewTicketBatch(nil), nil
	}

	tickets := make([]*domain.Ticket, 0, len(payload.Result))
	for _, r := range payload.Result {
		tickets = append(tickets, c.mapRecord(r))
	}
	batch := domain.NewTicketBatch(tickets)

	c.logger.Info("retrieved tickets", "count", len(tickets), "latest_update_time", batch.LatestUpdateTime)
	return batch, nil
}

func (c *Client) mapRecord(r record) *domain.Ticket {
	t := &domain.Ticket{
		Number:    r.Number,
		Title:     r.ShortDescription,
		Query:     r.Description,
		Answer:    r.CloseNotes,
		URL:       c.baseURL + "/incident_list.do?",
		CreatedOn: r.SysCreatedOn,
	}
	if created, err := time.ParseInLocation(domain.CheckpointLayout, r.SysCreatedOn, time.UTC); err == nil {
		secs := created.Unix()
		t.Created = &secs
		t.OpenedAt = created.Format(isoLayout)
	} else if r.SysCreatedOn != "" {
		c.logger.Warn("unparseable ticket timestamp", "ticket", r.Number, "sys_created_on", r.SysCreatedOn)
	}
	return t
}
