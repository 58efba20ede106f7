// Package probeclient is the control plane's RPC client to external monitor
// agents: it sends one bounded-timeout request per probe and never retries at
// this layer — retries and failover are the worker's (C5) job.
package probeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/watchtower/controlplane/internal/model"
)

// request is the wire body sent to an agent for one probe.
type request struct {
	URL   string          `json:"url"`
	Port  int             `json:"port"`
	Type  model.MonitorKind `json:"type"`
	Token string          `json:"token"`
}

// response is the wire body an agent returns for one probe. Fields an agent
// omits map to the adverse default for their kind (see resultFromWire),
// never to a false "healthy" reading.
type response struct {
	Availability string `json:"availability"`
	Ping         string `json:"ping"`
	Port         string `json:"port"`
	Data         struct {
		Status int    `json:"status,omitempty"`
		Output string `json:"output,omitempty"`
	} `json:"data"`
}

// Result is a probe outcome for a single monitor/agent pair.
type Result struct {
	Availability model.Availability
	Ping         model.PingState
	Port         model.PortState
	StatusCode   int
	Output       string
	LatencyMS    int64
}

// Client issues probe RPCs against monitor agents.
type Client struct {
	http  *http.Client
	token string
}

// New returns a Client with the given bearer token and a hard per-request
// timeout (5s when timeout is not positive); agents that exceed it fail the
// probe as a transport error rather than hang a worker indefinitely.
func New(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		token: token,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				DisableKeepAlives: true,
			},
		},
	}
}

// Probe sends a probe request to agentURL for a monitor of the given kind.
// A non-nil error always means a transport-layer failure (C5 treats this as
// AgentTransport and may fail over to another agent); a successful round trip
// always returns a Result, even when the agent reports the target is down.
func (c *Client) Probe(ctx context.Context, agentURL string, kind model.MonitorKind, target string, port int) (*Result, error) {
	body, err := json.Marshal(request{URL: target, Port: port, Type: kind, Token: c.token})
	if err != nil {
		return nil, fmt.Errorf("marshalling probe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", agentURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading probe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("probe %s returned HTTP %d: %s", agentURL, resp.StatusCode, string(respBody))
	}

	var wire response
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("decoding probe response: %w", err)
	}

	return resultFromWire(kind, wire, latency), nil
}

// resultFromWire maps a wire response onto a Result, normalizing every
// field to its healthy value iff the agent reports exactly that value, and
// to the adverse default otherwise — whether the field was omitted or the
// agent sent some other string entirely. An authoritative field is never
// trusted at face value; only the one healthy spelling is.
func resultFromWire(kind model.MonitorKind, w response, latencyMS int64) *Result {
	r := &Result{
		StatusCode: w.Data.Status,
		Output:     w.Data.Output,
		LatencyMS:  latencyMS,
	}

	if w.Availability == "Up" {
		r.Availability = model.Up
	} else {
		r.Availability = model.Down
	}
	if w.Ping == "Reachable" {
		r.Ping = model.Reachable
	} else {
		r.Ping = model.Unreachable
	}
	if w.Port == "Open" {
		r.Port = model.Open
	} else {
		r.Port = model.Closed
	}

	_ = kind // all three fields are always populated; kind selects which is authoritative downstream
	return r
}
