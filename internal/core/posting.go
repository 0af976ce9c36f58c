package core

// Posting is a single job listing candidate returned by the search provider.
// Link is the canonical identifier used for de-duplication.
type Posting struct {
	Title string `json:"title" yaml:"title"`
	Link  string `json:"link" yaml:"link"`
}

// BatchState tracks a batch through a single run.
//
//	pending -> delivered -> recorded
//	pending -> failed
type BatchState string

const (
	BatchStatePending   BatchState = "pending"
	BatchStateDelivered BatchState = "delivered"
	BatchStateRecorded  BatchState = "recorded"
	BatchStateFailed    BatchState = "failed"
)

// Batch is the set of new postings for one query term, delivered as one message.
type Batch struct {
	Query    string     `json:"query" yaml:"query"`
	Postings []Posting  `json:"postings" yaml:"postings"`
	Message  string     `json:"message,omitempty" yaml:"message,omitempty"`
	State    BatchState `json:"state" yaml:"state"`
	Err      error      `json:"-" yaml:"-"`
}

// Links returns the identifiers of the batch's postings in order.
func (b *Batch) Links() []string {
	if b == nil {
		return nil
	}
	links := make([]string, 0, len(b.Postings))
	for _, posting := range b.Postings {
		links = append(links, posting.Link)
	}
	return links
}
