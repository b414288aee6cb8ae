package domain

// RawDocument is a loaded file before normalisation.
type RawDocument struct {
	URI      string
	MIMEType string
	Content  []byte
	Metadata map[string]any
}

// ChangeType classifies a watcher event.
type ChangeType int

const (
	ChangeCreated ChangeType = iota
	ChangeUpdated
	ChangeDeleted
)

var changeNames = [...]string{"created", "updated", "deleted"}

func (c ChangeType) String() string {
	if c < 0 || int(c) >= len(changeNames) {
		return "unknown"
	}
	return changeNames[c]
}

// RawDocumentChange is emitted when a file under a watched corpus changes.
// Document.Content is empty for deletions.
type RawDocumentChange struct {
	Type     ChangeType
	Document RawDocument
}
