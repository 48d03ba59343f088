package etl

// Report summarizes one stage invocation. Every stage returns one so partial
// progress is observable even when the invocation aborts early.
type Report struct {
	// Succeeded counts records fully processed and committed.
	Succeeded int `json:"succeeded"`

	// Created and Updated split Succeeded for stages that upsert
	// (extraction, transformation).
	Created int `json:"created,omitempty"`
	Updated int `json:"updated,omitempty"`

	// Skipped counts deterministic skips: duplicate-identifier collisions
	// in extraction, records already fresh, records with nothing left to
	// compute.
	Skipped int `json:"skipped"`

	// Rejected counts records that failed eligibility (not public domain,
	// missing image, unsupported work type). Rejections are expected
	// outcomes, not errors.
	Rejected int `json:"rejected"`

	// Failed counts per-record errors that left the record eligible for a
	// retry-failed run.
	Failed int `json:"failed"`
}

// Add merges another report into this one.
func (r *Report) Add(other *Report) {
	r.Succeeded += other.Succeeded
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Rejected += other.Rejected
	r.Failed += other.Failed
}

// Total returns the number of records the stage looked at.
func (r *Report) Total() int {
	return r.Succeeded + r.Skipped + r.Rejected + r.Failed
}
