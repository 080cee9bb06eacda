// Package dedup merges per-page extraction results into one ordered,
// duplicate-free review list.
package dedup

import "shopreviews/internal/core/domain"

// Merge appends the reviews of next whose fingerprint is new to list, recording
// each fingerprint in seen. Reviews with an empty fingerprint are dropped. The
// first occurrence keeps its position. It returns the grown list and the number
// of reviews added.
func Merge(seen map[string]struct{}, list, next []domain.Review) ([]domain.Review, int) {
	added := 0
	for _, r := range next {
		key := r.Fingerprint()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		list = append(list, r)
		added++
	}
	return list, added
}

// Accumulator owns the running collection for one job. It is not safe for
// concurrent use; the job's own task is its only writer.
type Accumulator struct {
	seen    map[string]struct{}
	reviews []domain.Review
}

// New creates an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Add merges a page worth of reviews and returns how many were new.
func (a *Accumulator) Add(page []domain.Review) int {
	var added int
	a.reviews, added = Merge(a.seen, a.reviews, page)
	return added
}

// Reviews returns a copy of the collection in first-seen order.
func (a *Accumulator) Reviews() []domain.Review {
	return append([]domain.Review(nil), a.reviews...)
}

// Len returns the number of distinct reviews kept.
func (a *Accumulator) Len() int {
	return len(a.reviews)
}

// Seen reports whether a review with the same fingerprint is already held.
func (a *Accumulator) Seen(r domain.Review) bool {
	_, ok := a.seen[r.Fingerprint()]
	return ok
}
