package events

// FileOp names a filesystem mutation.
type FileOp string

const (
	FileOpWrite  FileOp = "write"
	FileOpUpload FileOp = "upload"
	FileOpMkdir  FileOp = "mkdir"
	FileOpRename FileOp = "rename"
	FileOpDelete FileOp = "delete"
	FileOpCopy   FileOp = "copy"
	FileOpMove   FileOp = "move"
)

// FileOperationPayload is the payload for file_operation events.
type FileOperationPayload struct {
	Op          FileOp `json:"op"`
	Path        string `json:"path"`
	Dest        string `json:"dest,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Copied      int    `json:"copied,omitempty"`
	Skipped     int    `json:"skipped,omitempty"`
	Overwritten int    `json:"overwritten,omitempty"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
}

// ArchiveExtractedPayload is the payload for archive_extracted events.
type ArchiveExtractedPayload struct {
	Archive   string `json:"archive"`
	Dest      string `json:"dest"`
	Extracted int    `json:"extracted"`
	Skipped   int    `json:"skipped"`
	Bytes     int64  `json:"bytes"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// NewFileOperationEvent creates a new file_operation event.
func NewFileOperationEvent(p FileOperationPayload) *BaseEvent {
	return NewEvent(EventTypeFileOperation, p)
}

// NewArchiveExtractedEvent creates a new archive_extracted event.
func NewArchiveExtractedEvent(p ArchiveExtractedPayload) *BaseEvent {
	return NewEvent(EventTypeArchiveExtracted, p)
}
