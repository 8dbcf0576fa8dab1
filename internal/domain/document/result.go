package document

// ItemStatus is the processing outcome of a single document in a batch.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// ItemResult is the outcome of processing one document in a batch operation.
type ItemResult struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful item result.
func NewOK(id string) ItemResult { return ItemResult{id: id, status: StatusOK} }

// NewError creates a failed item result.
func NewError(id string, err error) ItemResult {
	return ItemResult{id: id, status: StatusError, err: err}
}

// ID returns the document identifier.
func (r ItemResult) ID() string { return r.id }

// Status returns the processing outcome.
func (r ItemResult) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r ItemResult) Err() error { return r.err }
