// Package randomvalue adds a configuration source of random values, useful
// for instance identifiers and secrets in development:
//
//	random.uuid   a version 4 UUID
//	random.value  32 hex characters
//	random.int    a non-negative 31-bit integer
//	random.long   a non-negative 63-bit integer
//
// Values are drawn once per load.
package randomvalue

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const SourceName = "random"

func init() {
	capability.Register(capability.RandomValueBase, core.Version)
	wiring.RegisterActivator(wiring.KeyRandomValue, Activate)
}

// Source generates the random.* settings.
type Source struct{}

func (Source) Name() string { return SourceName }

func (Source) Load(context.Context, *host.Settings) (map[string]interface{}, error) {
	var buf [24]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return map[string]interface{}{
		"random.uuid":  uuid.NewString(),
		"random.value": hex.EncodeToString(buf[:16]),
		"random.int":   int(binary.BigEndian.Uint32(buf[16:20]) >> 1),
		"random.long":  int64(binary.BigEndian.Uint64(buf[16:24]) >> 1),
	}, nil
}

// Activate adds the random value source.
func Activate(a *wiring.Activation) error {
	a.Builder.AddConfigSource(Source{})
	return nil
}
