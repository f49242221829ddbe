// Package loki pushes audit entries to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Job is the job label of every pushed stream.
const Job = "projectbeheer"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// entryFields are the parts of an audit entry used for labels and timestamp.
type entryFields struct {
	EntityTable string    `json:"entity_table"`
	Action      string    `json:"action"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Client pushes log lines to a Loki base URL such as http://localhost:3100.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

// PushEntryJSON pushes one audit entry as received from the feed. Labels come
// from entity_table and action; unparsable payloads are pushed as-is with the
// current time.
func (c *Client) PushEntryJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var f entryFields
	if err := json.Unmarshal(raw, &f); err == nil {
		if f.EntityTable != "" {
			labels["entity_table"] = f.EntityTable
		}
		if f.Action != "" {
			labels["action"] = f.Action
		}
		if !f.OccurredAt.IsZero() {
			ts = f.OccurredAt
		}
	}
	return c.Push(ctx, ts, string(raw), labels)
}

// Push sends a single line. Empty label values are dropped.
func (c *Client) Push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	if c.baseURL == "" {
		return errors.New("loki: base URL is empty")
	}
	stream := make(map[string]string, len(labels)+1)
	stream["job"] = Job
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			stream[k] = s
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return errors.Wrap(err, "loki: marshal push")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "loki: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "loki: push")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("loki: push returned %s", resp.Status)
	}
	return nil
}
