package job

// RecordStore is the storage boundary for import records (both in-memory and
// persistent). Subscribers re-run whenever any record changes.
type RecordStore interface {
	Add(r *Record) error
	Get(id string) (*Record, error)
	GetByRequestID(requestID string) (*Record, error)
	Update(r *Record) error
	Delete(id string) error
	List() ([]*Record, error)
	ListActive() ([]*Record, error)
	Stats() (active, finished, failed int)
	Subscribe(fn func())
}
