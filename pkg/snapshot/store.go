package snapshot

// Store is one backend store taking part in a snapshot. The coordinator
// never interprets the bytes a store writes; it only tells the store where
// to put them and where to find them again.
type Store interface {
	// Name identifies the store and namespaces its staging subdirectory.
	// Must be unique across the stores handed to a coordinator.
	Name() string

	// WriteSnapshot serializes the store state into the given directory.
	WriteSnapshot(path string) error

	// ReadSnapshot restores the store state from the given directory.
	ReadSnapshot(path string) error
}
