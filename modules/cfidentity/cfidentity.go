// Package cfidentity exposes the Cloud Foundry container identity: the
// instance certificate and key Diego writes into every container and
// rotates before expiry.
//
// Settings:
//
//	security.container_identity.certificate     $CF_INSTANCE_CERT
//	security.container_identity.private_key     $CF_INSTANCE_KEY
//	security.container_identity.check_interval  1m
package cfidentity

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	SourceName  = "container-identity"
	ServiceName = "security.container_identity"
	TaskName    = "security.container_identity.rotation"

	KeyCertificate   = "security.container_identity.certificate"
	KeyPrivateKey    = "security.container_identity.private_key"
	KeyCheckInterval = "security.container_identity.check_interval"

	DefaultCheckInterval = time.Minute
)

func init() {
	capability.Register(capability.ContainerIdentity, core.Version)
	wiring.RegisterActivator(wiring.KeyContainerIdentity, Activate)
}

// Source publishes the certificate and key paths from the environment.
type Source struct {
	lookup func(string) (string, bool)
}

// NewSource reads the process environment.
func NewSource() *Source { return &Source{lookup: os.LookupEnv} }

// NewSourceFromLookup reads variables through lookup.
func NewSourceFromLookup(lookup func(string) (string, bool)) *Source {
	return &Source{lookup: lookup}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) Load(context.Context, *host.Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if v, ok := s.lookup(core.EnvCFInstanceCert); ok && v != "" {
		out[KeyCertificate] = v
	}
	if v, ok := s.lookup(core.EnvCFInstanceKey); ok && v != "" {
		out[KeyPrivateKey] = v
	}
	return out, nil
}

// Identity is what the certificate subject says about the container.
type Identity struct {
	InstanceID string
	AppID      string
	SpaceID    string
	OrgID      string
}

// identityOf reads the app:, space: and organization: organizational units
// Diego puts in the subject.
func identityOf(cert *x509.Certificate) Identity {
	id := Identity{InstanceID: cert.Subject.CommonName}
	for _, ou := range cert.Subject.OrganizationalUnit {
		kind, value, ok := strings.Cut(ou, ":")
		if !ok {
			continue
		}
		switch kind {
		case "app":
			id.AppID = value
		case "space":
			id.SpaceID = value
		case "organization":
			id.OrgID = value
		}
	}
	return id
}

// Store holds the current certificate and reloads it when the files change.
type Store struct {
	certFile string
	keyFile  string
	logger   core.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	identity Identity
	modTime  time.Time
}

// NewStore loads the key pair from certFile and keyFile.
func NewStore(certFile, keyFile string, logger core.Logger) (*Store, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("container identity certificate and key paths are required: %w", core.ErrMissingConfiguration)
	}
	s := &Store{certFile: certFile, keyFile: keyFile, logger: core.LoggerOrNoOp(logger)}
	if _, err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) latestModTime() (time.Time, error) {
	var latest time.Time
	for _, path := range []string{s.certFile, s.keyFile} {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// Refresh reloads the key pair when either file changed since the last load
// and reports whether it did. The previous certificate stays in use when the
// new files cannot be loaded.
func (s *Store) Refresh() (bool, error) {
	modTime, err := s.latestModTime()
	if err != nil {
		return false, fmt.Errorf("stat container identity files: %w", err)
	}
	s.mu.RLock()
	unchanged := s.cert != nil && !modTime.After(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	pair, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
	if err != nil {
		return false, fmt.Errorf("load container identity: %w", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return false, fmt.Errorf("parse container identity: %w", err)
	}
	pair.Leaf = leaf

	s.mu.Lock()
	s.cert = &pair
	s.identity = identityOf(leaf)
	s.modTime = modTime
	s.mu.Unlock()

	s.logger.Info("Loaded container identity certificate", map[string]interface{}{
		"subject":   leaf.Subject.String(),
		"not_after": leaf.NotAfter.Format(time.RFC3339),
	})
	return true, nil
}

// Certificate returns the current key pair.
func (s *Store) Certificate() *tls.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cert
}

// Identity returns the subject of the current certificate.
func (s *Store) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// NotAfter returns the expiry of the current certificate.
func (s *Store) NotAfter() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cert.Leaf.NotAfter
}

// GetCertificate serves the current certificate to TLS servers.
func (s *Store) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return s.Certificate(), nil
}

// GetClientCertificate presents the current certificate to TLS servers.
func (s *Store) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return s.Certificate(), nil
}

// ServerTLSConfig returns a config that always serves the current
// certificate.
func (s *Store) ServerTLSConfig() *tls.Config {
	return &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: s.GetCertificate}
}

// ClientTLSConfig returns a config presenting the current certificate.
func (s *Store) ClientTLSConfig() *tls.Config {
	return &tls.Config{MinVersion: tls.VersionTLS12, GetClientCertificate: s.GetClientCertificate}
}

// Activate adds the identity source, the certificate store service and the
// rotation task.
func Activate(a *wiring.Activation) error {
	b := a.Builder
	b.AddConfigSource(NewSource())

	settings, err := a.Settings()
	if err != nil {
		return err
	}
	interval := settings.GetDurationOr(KeyCheckInterval, DefaultCheckInterval)
	if interval <= 0 {
		return core.ConfigError("cfidentity.Activate", KeyCheckInterval, "check interval must be positive", core.ErrInvalidConfiguration)
	}

	b.RegisterService(ServiceName, func(_ context.Context, sp *host.ServiceProvider) (interface{}, error) {
		s := sp.Settings()
		return NewStore(s.GetString(KeyCertificate), s.GetString(KeyPrivateKey), sp.Logger())
	})
	b.AddBackgroundTask(host.NewTask(TaskName, func(ctx context.Context, h *host.Host) error {
		return rotate(ctx, h, interval)
	}))
	return nil
}

// rotate reloads the certificate every interval. It exits quietly when no
// identity is configured, as outside Cloud Foundry.
func rotate(ctx context.Context, h *host.Host, interval time.Duration) error {
	if !h.Settings().IsSet(KeyCertificate) {
		h.Logger().Info("No container identity configured, rotation disabled", nil)
		return nil
	}
	store, err := host.Resolve[*Store](ctx, h.Services(), ServiceName)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := store.Refresh(); err != nil {
				h.Logger().Warn("Container identity refresh failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
