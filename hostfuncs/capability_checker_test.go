package hostfuncs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/reglet-dev/triebridge/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestCheckCapabilities(t *testing.T) {
	assert.NoError(t, CheckCapabilities(1, &bytes.Buffer{}, entities.ReadWrite))
	assert.NoError(t, CheckCapabilities(1, strings.NewReader(""), entities.Readable))
	assert.NoError(t, CheckCapabilities(1, strings.NewReader(""), 0))

	err := CheckCapabilities(4, readOnly{strings.NewReader("")}, entities.ReadWrite)
	assert.EqualError(t, err, "iid 4: underlying type hostfuncs.readOnly does not implement types [io.Writer]")
}

func TestCapabilitiesOf(t *testing.T) {
	assert.Equal(t, entities.ReadWrite, capabilitiesOf(&bytes.Buffer{}))
	assert.Equal(t, entities.Readable, capabilitiesOf(readOnly{}))
	assert.Equal(t, entities.Writable, capabilitiesOf(writeOnly{}))
	assert.Equal(t, entities.Capability(0), capabilitiesOf(42))
}
