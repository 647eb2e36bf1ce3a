package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	// Records survive closing and reopening the backend
	CapabilityPersistent BackendCapability = "persistent"
	// Each operation runs inside a real substrate transaction
	CapabilityTransactional BackendCapability = "transactional"
	// ScanAll returns records in ascending key order
	CapabilityOrderedScan BackendCapability = "ordered_scan"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities []BackendCapability `json:"capabilities"`
	// Largest value a single record may hold; 0 means unlimited
	MaxRecordSize int64 `json:"max_record_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return slices.Contains(bc.Capabilities, cap)
}

// Fits reports whether a record of the given size can be stored.
func (bc *BackendCapabilities) Fits(size int64) bool {
	return bc.MaxRecordSize <= 0 || size <= bc.MaxRecordSize
}
