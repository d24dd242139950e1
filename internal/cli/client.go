package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxhollow/switchboard/internal/config"
)

// apiClient calls the REST routes of a running gateway. Commands use it
// to act as the administrator or as an agent from the terminal.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

// adminClient builds a client that authenticates with the administrative
// credential unless an explicit token is supplied.
func adminClient(overrideURL, overrideToken string) (*apiClient, error) {
	cfg := loadClientConfig()
	token := overrideToken
	if token == "" {
		token = cfg.AdminToken()
	}
	if token == "" {
		return nil, fmt.Errorf("no administrative credential: pass --token or set server.adminToken")
	}
	return newAPIClient(&cfg, overrideURL, token), nil
}

// agentClient builds a client that sends the supplied agent token. With
// no token the request goes out unauthenticated, which demo mode maps to
// the standing demo agent.
func agentClient(overrideURL, overrideToken string) (*apiClient, error) {
	cfg := loadClientConfig()
	return newAPIClient(&cfg, overrideURL, overrideToken), nil
}

func loadClientConfig() config.Config {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		cfg = config.Defaults()
	}
	return cfg
}

func newAPIClient(cfg *config.Config, overrideURL, token string) *apiClient {
	base := overrideURL
	if base == "" {
		port := cfg.Server.Port
		if port == 0 {
			port = 3100
		}
		scheme := "http"
		if cfg.Server.TLS.Enabled {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://127.0.0.1:%d", scheme, port)
	}
	return &apiClient{
		base:  strings.TrimRight(base, "/") + "/api/v1",
		token: token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *apiClient) post(path string, body, out any) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway not reachable at %s (is it running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, firstLine(apiErr.Error))
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// firstLine trims an error body to its summary line; detail lines are
// for API consumers, not terminal output.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
