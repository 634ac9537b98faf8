package hostfuncs

import (
	"fmt"

	"github.com/reglet-dev/triebridge/domain/entities"
)

// CheckCapabilities verifies that v supports every capability in want.
// The error names the Go interfaces v is missing.
func CheckCapabilities(iid entities.Handle, v any, want entities.Capability) error {
	if unknown := want &^ entities.ReadWrite; unknown != 0 {
		return fmt.Errorf("iid %d: unknown capability bits %#x", iid, uint32(unknown))
	}
	missing := capabilitiesOf(v).Missing(want)
	if missing == 0 {
		return nil
	}
	return fmt.Errorf("iid %d: underlying type %T does not implement types %v", iid, v, missing.Interfaces())
}
