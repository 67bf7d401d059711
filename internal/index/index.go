package index

// MyfileIndex defines the interface for directory index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type MyfileIndex interface {
	Upsert(row MyfileRow) error
	Delete(name string) error
	GetChecksum(name string) (string, error)
	Get(name string) (*MyfileRow, error)
	List(limit, offset int) ([]MyfileRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies MyfileIndex at compile time.
var _ MyfileIndex = (*DB)(nil)
