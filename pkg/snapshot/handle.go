package snapshot

// Meta is the metadata attached to a manifest entry
type Meta struct {
	Checksum string `json:"checksum,omitempty"`
}

// Writer is the handle a save operation works against. It is owned by the
// caller for the duration of one Save call and not retained afterwards.
type Writer interface {
	// Path returns the root path of the handle.
	Path() string

	// AddFile registers a named file in the handle manifest together with
	// its metadata. Returns false if the entry could not be recorded.
	AddFile(name string, meta Meta) bool

	// ListFiles returns the current file listing for diagnostics.
	ListFiles() []string
}

// Reader is the handle a load operation works against.
type Reader interface {
	// Path returns the root path of the handle.
	Path() string

	// FileMeta looks up the metadata of a named manifest entry.
	FileMeta(name string) (Meta, bool)

	// ListFiles returns the current file listing for diagnostics.
	ListFiles() []string
}
