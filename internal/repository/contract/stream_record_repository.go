package contract

import "conflict-resolution-be/pkg/textstream"

// StreamRecordRepository is the full capability set every stream record
// backend provides.
type StreamRecordRepository interface {
	textstream.Store
	textstream.OwnerIndex
	textstream.Expirer
}
