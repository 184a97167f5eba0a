package enum

// Folder is the closed set of provider folders mirrored locally.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderDeleted Folder = "deleted"
	FolderJunk    Folder = "junk"
	FolderArchive Folder = "archive"
)

func (f Folder) String() string {
	return string(f)
}

// AllFolders returns every folder the sync engine tracks. Webhook-triggered
// syncs fan out across this full set because a change notification does not
// identify which folder a message landed in.
func AllFolders() []Folder {
	return []Folder{
		FolderInbox,
		FolderSent,
		FolderDrafts,
		FolderDeleted,
		FolderJunk,
		FolderArchive,
	}
}

func DecodeFolder(s string) (Folder, bool) {
	switch Folder(s) {
	case FolderInbox, FolderSent, FolderDrafts, FolderDeleted, FolderJunk, FolderArchive:
		return Folder(s), true
	default:
		return "", false
	}
}
