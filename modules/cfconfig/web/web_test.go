package web

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsneelabh/autowire/capability"
)

func TestImportingRegistersBothTokens(t *testing.T) {
	reg := capability.Default()
	assert.True(t, reg.Loaded(capability.CloudFoundryCore))
	assert.True(t, reg.Loaded(capability.CloudFoundryBase))
}
