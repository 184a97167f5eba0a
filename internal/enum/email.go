package enum

type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

func (i Importance) String() string {
	return string(i)
}

type FlagStatus string

const (
	FlagStatusNotFlagged FlagStatus = "notFlagged"
	FlagStatusFlagged    FlagStatus = "flagged"
	FlagStatusComplete   FlagStatus = "complete"
)

func (f FlagStatus) String() string {
	return string(f)
}

// ChangeType mirrors the change kinds the remote provider reports in a
// notification batch.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)
