package enum

// ThreadItemType discriminates the entry kinds a thread can hold.
type ThreadItemType string

const (
	ThreadItemEmail   ThreadItemType = "email"
	ThreadItemComment ThreadItemType = "comment"
	ThreadItemNote    ThreadItemType = "note"
	ThreadItemDivider ThreadItemType = "divider"
)

func (t ThreadItemType) String() string {
	return string(t)
}

// ThreadItemStatus is the explicit soft-delete state machine:
// active -> removed -> active (restore), with permanent delete as the only
// terminal exit from either state.
type ThreadItemStatus string

const (
	ThreadItemActive  ThreadItemStatus = "active"
	ThreadItemRemoved ThreadItemStatus = "removed"
)

func (s ThreadItemStatus) String() string {
	return string(s)
}
