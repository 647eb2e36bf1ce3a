package backend

import (
	"fmt"

	"github.com/mwantia/lvfs/data"
)

// SchemaVersion is the layout version written by this release. Bump it when
// table layouts change and extend each backend's upgrade step.
const SchemaVersion = 1

// CheckSchema compares the stored schema version of a substrate with
// SchemaVersion. It returns true when the tables must be created or upgraded.
// A stored version of 0 means the substrate was never initialized.
func CheckSchema(stored int) (bool, error) {
	switch {
	case stored < 0:
		return false, fmt.Errorf("%w: invalid version %d", data.ErrSchemaVersion, stored)
	case stored > SchemaVersion:
		return false, fmt.Errorf("%w: found %d, supported %d", data.ErrSchemaVersion, stored, SchemaVersion)
	default:
		return stored < SchemaVersion, nil
	}
}
