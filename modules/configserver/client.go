package configserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/internal/traced"
)

// Environment is the config server response for one application.
type Environment struct {
	Name            string           `json:"name"`
	Profiles        []string         `json:"profiles"`
	Label           string           `json:"label,omitempty"`
	Version         string           `json:"version,omitempty"`
	State           string           `json:"state,omitempty"`
	PropertySources []PropertySource `json:"propertySources"`
}

// PropertySource is one named set of properties. The server lists them in
// descending priority.
type PropertySource struct {
	Name   string                 `json:"name"`
	Source map[string]interface{} `json:"source"`
}

// Flatten merges the property sources so that earlier sources win.
func (e *Environment) Flatten() map[string]interface{} {
	out := make(map[string]interface{})
	for i := len(e.PropertySources) - 1; i >= 0; i-- {
		for k, v := range e.PropertySources[i].Source {
			out[strings.ToLower(k)] = v
		}
	}
	return out
}

// Client fetches environments from a config server.
type Client struct {
	base     *url.URL
	label    string
	username string
	password string
	http     *http.Client
}

// NewClient creates a client for the server at uri.
func NewClient(uri string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(uri, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid config server uri %q: %w", uri, core.ErrInvalidConfiguration)
	}
	if base.User != nil && opts.Username == "" {
		opts.Username = base.User.Username()
		opts.Password, _ = base.User.Password()
		base.User = nil
	}
	return &Client{
		base:     base,
		label:    opts.Label,
		username: opts.Username,
		password: opts.Password,
		http:     traced.NewHTTPClient(opts.Transport, opts.Timeout),
	}, nil
}

// URI returns the server address without credentials.
func (c *Client) URI() string { return c.base.String() }

// Fetch requests GET {uri}/{name}/{profile}[/{label}].
func (c *Client) Fetch(ctx context.Context, name, profile string) (*Environment, error) {
	if name == "" {
		return nil, fmt.Errorf("application name is required: %w", core.ErrMissingConfiguration)
	}
	if profile == "" {
		profile = "default"
	}

	path := []string{url.PathEscape(name), url.PathEscape(profile)}
	if c.label != "" {
		path = append(path, url.PathEscape(c.label))
	}
	endpoint := c.base.String() + "/" + strings.Join(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build config server request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config server %s: %w: %v", c.URI(), core.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Environment{Name: name, Profiles: []string{profile}}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("config server %s returned %d: %w: %s", c.URI(), resp.StatusCode, core.ErrRequestFailed, strings.TrimSpace(string(body)))
	}

	var env Environment
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode config server response: %w", err)
	}
	return &env, nil
}

// Options configures the client and the source.
type Options struct {
	URI          string
	Label        string
	Username     string
	Password     string
	FailFast     bool
	Timeout      time.Duration
	PollInterval time.Duration

	Transport http.RoundTripper
}
