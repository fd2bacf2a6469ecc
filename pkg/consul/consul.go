package consul

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/log"
)

const (
	requestTimeout = 5 * time.Second

	// Retry policy for reads against the local agent. The report fetch
	// tolerates a long agent restart; node and service reads only ride
	// out transient hiccups.
	agentChecksTries = 5
	agentChecksPause = 30 * time.Second
	healthReadTries  = 4
	healthReadPause  = 1 * time.Second
)

// Client is a narrow HTTP client for the local Consul agent. It covers only
// the endpoints Apollo consumes: service registration, TTL check updates,
// per-node check listings, service member health, and the agent check dump.
type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
}

// NewClient creates a client against the given agent endpoint,
// e.g. "http://127.0.0.1:8500".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: requestTimeout},
		logger:   log.WithComponent("consul"),
	}
}

// Registration describes one service with its TTL check.
type Registration struct {
	// ID is the on-the-wire service id (main name, or "<sub>-<main>").
	ID string

	// Script is the health check command, recorded on the check for
	// operator visibility.
	Script string

	// Frequency is the check interval in seconds. The TTL registered with
	// consul is Frequency+Penalty so a slow check does not expire the TTL
	// before the next push.
	Frequency int
	Penalty   int

	Port int
	Tags []string
}

type registerCheck struct {
	ID      string `json:"id"`
	Script  string `json:"script"`
	RealTTL int    `json:"real_ttl"`
	TTL     string `json:"ttl"`
}

type registerService struct {
	Name  string        `json:"name"`
	Port  int           `json:"port,omitempty"`
	Tags  []string      `json:"tags,omitempty"`
	Check registerCheck `json:"check"`
}

type registerPayload struct {
	Service registerService `json:"service"`
}

// Register registers the service and its TTL check with the agent.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	payload := registerPayload{
		Service: registerService{
			Name: reg.ID,
			Port: reg.Port,
			Tags: reg.Tags,
			Check: registerCheck{
				ID:      reg.ID,
				Script:  reg.Script,
				RealTTL: reg.Frequency,
				TTL:     fmt.Sprintf("%ds", reg.Frequency+reg.Penalty),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode registration: %w", err)
	}

	c.logger.Info().Str("service", reg.ID).Str("ttl", payload.Service.Check.TTL).Msg("registering service")
	return c.put(ctx, "/v1/agent/service/register", nil, body)
}

// UpdateTTL pushes a pass/warn/fail transition for the given service check.
// The note is always set; it carries Apollo's authorship and transition
// timestamp markers.
func (c *Client) UpdateTTL(ctx context.Context, serviceID, verb, note string) error {
	q := url.Values{}
	q.Set("note", note)
	path := fmt.Sprintf("/v1/agent/check/%s/service:%s", verb, serviceID)
	return c.put(ctx, path, q, nil)
}

// NodeChecks lists the checks registered on the given node. Read failures
// retry up to healthReadTries with a constant pause.
func (c *Client) NodeChecks(ctx context.Context, hostname string) ([]NodeCheck, error) {
	var raw []rawCheck
	path := "/v1/health/node/" + url.PathEscape(hostname)
	if err := c.getRetry(ctx, path, &raw, healthReadTries, healthReadPause); err != nil {
		return nil, err
	}

	checks := make([]NodeCheck, 0, len(raw))
	for _, rc := range raw {
		checks = append(checks, NodeCheck{
			ServiceID: rc.ServiceID,
			CheckID:   rc.CheckID,
			Status:    rc.Status,
			Output:    rc.Output,
			Since:     parseSince(rc.Output),
			ByApollo:  parseByApollo(rc.Output),
		})
	}
	return checks, nil
}

// ServiceCheck returns this node's check for the given service id, or nil
// when the service is not registered on the node.
func (c *Client) ServiceCheck(ctx context.Context, hostname, serviceID string) (*NodeCheck, error) {
	checks, err := c.NodeChecks(ctx, hostname)
	if err != nil {
		return nil, err
	}
	for i := range checks {
		if checks[i].ServiceID == serviceID {
			return &checks[i], nil
		}
	}
	return nil, nil
}

// ServiceHealth aggregates member health for a service across the cluster.
// A member is critical when its service check or its serfHealth check is
// critical; otherwise the service check's status wins, defaulting to
// passing when absent.
func (c *Client) ServiceHealth(ctx context.Context, service string, withHosts bool) (*ServiceHealth, error) {
	var raw []rawServiceEntry
	path := "/v1/health/service/" + url.PathEscape(service)
	if err := c.getRetry(ctx, path, &raw, healthReadTries, healthReadPause); err != nil {
		return nil, err
	}

	health := &ServiceHealth{}
	for _, entry := range raw {
		st := memberStatus(entry.Checks, service)
		switch st {
		case "passing":
			health.Passing++
		case "warning":
			health.Warning++
		case "critical":
			health.Critical++
			if withHosts {
				health.CriticalHosts = append(health.CriticalHosts, entry.Node.Node)
			}
		}
	}
	sort.Strings(health.CriticalHosts)
	return health, nil
}

// AgentChecks dumps all checks registered with the local agent, keyed by
// check id. Used by the report writer; retries ride out an agent restart.
func (c *Client) AgentChecks(ctx context.Context) (map[string]AgentCheck, error) {
	var checks map[string]AgentCheck
	if err := c.getRetry(ctx, "/v1/agent/checks", &checks, agentChecksTries, agentChecksPause); err != nil {
		return nil, err
	}
	return checks, nil
}

func memberStatus(checks []rawCheck, service string) string {
	st := "passing"
	for _, check := range checks {
		if check.CheckID == "serfHealth" && check.Status == "critical" {
			return "critical"
		}
		if check.ServiceName == service && check.Status != "" {
			st = check.Status
		}
	}
	return st
}

func (c *Client) put(ctx context.Context, path string, query url.Values, body []byte) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("consul request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("consul returned %d for %s: %s", resp.StatusCode, path, bytes.TrimSpace(msg))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("consul request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("consul returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", path, err))
	}
	return nil
}

func (c *Client) getRetry(ctx context.Context, path string, out interface{}, tries int, pause time.Duration) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(pause), uint64(tries-1)), ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.get(ctx, path, out)
		if err != nil && attempt < tries {
			c.logger.Warn().Err(err).Str("path", path).Int("attempt", attempt).Msg("consul read failed, retrying")
		}
		return err
	}, policy)
}
