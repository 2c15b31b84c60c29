package component

import "github.com/milk9111/stagestream/common"

// InternalID links a live entity to its registry entry.
type InternalID int64

// NoInternalID marks a registry entry whose entity is not instantiated.
const NoInternalID InternalID = -1

// Streamed carries the streaming capabilities of a live entity: whether it may
// be streamed out at all, and whether it may come back once it has been.
type Streamed struct {
	InternalID    InternalID
	Blueprint     string
	DontStreamOut bool
	AlwaysRespawn bool
	// Box is relative to the entity position and only meaningful when ValidBox is set.
	Box      common.Box
	ValidBox bool
}

var StreamedComponent = NewComponent[Streamed]()
