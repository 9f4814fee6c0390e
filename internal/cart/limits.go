package cart

import "time"

// Cart bounds enforced by the validation layer.
const (
	MaxItems           = 100
	MaxQuantityPerItem = 999
	MinQuantity        = 1
	MinPrice           = 0.01
	MaxPrice           = 999999.99
	MaxNameLength      = 200
)

// Snapshot envelope defaults.
const (
	StorageVersion    = "1.0"
	DefaultStorageKey = "smartdot_cart"
	DefaultMaxAge     = 30 * 24 * time.Hour

	availabilityProbeKey = "__storage_test__"
)
