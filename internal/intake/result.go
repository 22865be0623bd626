package intake

import "strings"

// Status labels attached to each processed file. Labels are the wire
// contract; Category is the decoded form used everywhere past the boundary.
const (
	StatusCreated   = "Created"
	StatusUpdated   = "Updated"
	StatusDuplicate = "Duplicate (skipped)"
	statusFailedPre = "Failed - "
)

// FailedStatus builds the failure label for a per-file reason.
func FailedStatus(reason string) string {
	return statusFailedPre + reason
}

// Category classifies a per-file outcome.
type Category int

const (
	CategoryUpdated Category = iota
	CategoryCreated
	CategoryDuplicate
	CategoryFailed
)

// Classify decodes a status label into its category. Evaluation order
// matters: an exact Created match wins, then duplicate, then failed, and
// anything else counts as updated.
func Classify(status string) Category {
	switch {
	case status == StatusCreated:
		return CategoryCreated
	case strings.Contains(status, "Duplicate"):
		return CategoryDuplicate
	case strings.Contains(status, "Failed"):
		return CategoryFailed
	default:
		return CategoryUpdated
	}
}

// ResultItem is one file's processing outcome.
type ResultItem struct {
	FileName       string `json:"file_name"`
	CandidateID    string `json:"candidate_id,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
	CandidateEmail string `json:"candidate_email,omitempty"`
	Status         string `json:"status"`
}

// Category decodes the item's status label.
func (r ResultItem) Category() Category {
	return Classify(r.Status)
}

// Result is the aggregated outcome of one batch.
type Result struct {
	TotalProcessed int          `json:"total_processed"`
	Success        int          `json:"success"`
	Created        int          `json:"created"`
	Updated        int          `json:"updated"`
	Duplicates     int          `json:"duplicates"`
	Failed         int          `json:"failed"`
	Results        []ResultItem `json:"results"`
}

// Summarize aggregates per-file items into a Result. Every item lands in
// exactly one category, so created+updated+duplicates+failed equals the
// item count.
func Summarize(items []ResultItem) Result {
	res := Result{
		TotalProcessed: len(items),
		Results:        items,
	}
	for _, item := range items {
		switch item.Category() {
		case CategoryCreated:
			res.Created++
		case CategoryDuplicate:
			res.Duplicates++
		case CategoryFailed:
			res.Failed++
		default:
			res.Updated++
		}
	}
	res.Success = res.TotalProcessed - res.Failed
	return res
}

// FailedItems returns the subset of items that failed, preserving order.
// Callers use it to rebuild a retry batch.
func FailedItems(items []ResultItem) []ResultItem {
	var failed []ResultItem
	for _, item := range items {
		if item.Category() == CategoryFailed {
			failed = append(failed, item)
		}
	}
	return failed
}
