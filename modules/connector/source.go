package connector

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/itsneelabh/autowire/host"
)

const SourceName = "connectionstrings"

// Source publishes connectionstrings.<kind> for every Cloud Foundry service
// binding that matches a connector, unless the setting is already present.
type Source struct{}

func (Source) Name() string { return SourceName }

func (Source) Load(_ context.Context, prior *host.Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if prior == nil {
		return out, nil
	}
	bindings := serviceBindings(prior)
	for _, kind := range Kinds() {
		key := "connectionstrings." + string(kind)
		if prior.IsSet(key) {
			continue
		}
		for _, b := range bindings {
			if !b.matches(kinds[kind].aliases) {
				continue
			}
			if conn := b.connectionString(kind); conn != "" {
				out[key] = conn
				break
			}
		}
	}
	return out, nil
}

// binding is one entry of vcap.services.<label>.<index>.
type binding struct {
	label       string
	tags        []string
	credentials *host.Settings
}

func serviceBindings(s *host.Settings) []binding {
	services := s.Sub("vcap.services")
	var labels []string
	for label := range services.AllSettings() {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var out []binding
	for _, label := range labels {
		entries, ok := services.Get(label).(map[string]interface{})
		if !ok {
			continue
		}
		for i := 0; i < len(entries); i++ {
			entry := services.Sub(label + "." + strconv.Itoa(i))
			b := binding{
				label:       label,
				credentials: entry.Sub("credentials"),
			}
			tags := entry.Sub("tags")
			for j := 0; tags.IsSet(strconv.Itoa(j)); j++ {
				b.tags = append(b.tags, tags.GetString(strconv.Itoa(j)))
			}
			out = append(out, b)
		}
	}
	return out
}

func (b binding) matches(aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(strings.ToLower(b.label), alias) {
			return true
		}
		for _, tag := range b.tags {
			if strings.Contains(strings.ToLower(tag), alias) {
				return true
			}
		}
	}
	return false
}

// connectionString prefers a uri credential and otherwise assembles one
// from the host, port and user fields brokers commonly publish.
func (b binding) connectionString(kind Kind) string {
	c := b.credentials
	for _, key := range []string{"uri", "url"} {
		if v := c.GetString(key); v != "" {
			return v
		}
	}

	hostname := c.GetString("hostname")
	if hostname == "" {
		hostname = c.GetString("host")
	}
	if hostname == "" {
		return ""
	}
	info := &Info{
		Kind:     kind,
		Scheme:   kinds[kind].scheme,
		Host:     hostname,
		Port:     kinds[kind].port,
		Username: firstNonEmpty(c.GetString("username"), c.GetString("user")),
		Password: c.GetString("password"),
		Database: firstNonEmpty(c.GetString("name"), c.GetString("database"), c.GetString("db"), kinds[kind].database),
		Query:    url.Values{},
	}
	if c.IsSet("port") {
		info.Port = c.GetInt("port")
	}
	return info.URL()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
