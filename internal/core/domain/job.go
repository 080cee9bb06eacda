package domain

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// JobStatus is a state of the job state machine.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusStarting JobStatus = "starting"
	StatusLoading  JobStatus = "loading"
	StatusCaptcha  JobStatus = "captcha"
	StatusScraping JobStatus = "scraping"
	StatusComplete JobStatus = "complete"
	StatusError    JobStatus = "error"
)

// Terminal reports whether no further mutation is allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Interactive reports whether the job accepts input events and streams screenshots.
func (s JobStatus) Interactive() bool {
	return s == StatusStarting || s == StatusLoading || s == StatusCaptcha
}

// Job is the mutable state of one scrape request.
//
// Only the background task running the job mutates it (single writer). HTTP handlers
// read through Snapshot and push input through EnqueueInput; both are safe for
// concurrent use.
type Job struct {
	ID        string
	URL       string
	ProductID string
	CreatedAt time.Time

	mu           sync.RWMutex
	status       JobStatus
	message      string
	progress     int
	currentPage  int
	maxPages     int
	reviews      []Review
	productTitle string
	productImage string
	finishedAt   time.Time

	screenshot      []byte
	screenshotSeq   uint64
	browserAttached bool

	inputs  chan InputEvent
	limiter *rate.Limiter
}

// NewJob creates a queued job. inputBuffer bounds the pending input event queue and
// limiter throttles forwarded events; a nil limiter disables throttling.
func NewJob(id, url, productID string, maxPages, inputBuffer int, limiter *rate.Limiter) *Job {
	if inputBuffer <= 0 {
		inputBuffer = 64
	}
	return &Job{
		ID:        id,
		URL:       url,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
		status:    StatusQueued,
		message:   "Starting...",
		maxPages:  maxPages,
		inputs:    make(chan InputEvent, inputBuffer),
		limiter:   limiter,
	}
}

// Snapshot is a point-in-time copy of a job, safe to serialize.
type Snapshot struct {
	ID            string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Message       string    `json:"message"`
	Progress      int       `json:"progress"`
	CurrentPage   int       `json:"current_page"`
	MaxPages      int       `json:"max_pages"`
	ReviewCount   int       `json:"review_count"`
	Reviews       []Review  `json:"reviews"`
	ProductTitle  string    `json:"product_title"`
	ProductImage  string    `json:"product_image"`
	HasScreenshot bool      `json:"has_screenshot"`
}

// Snapshot copies the job state. Reviews are included only once the job is complete.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := Snapshot{
		ID:            j.ID,
		Status:        j.status,
		Message:       j.message,
		Progress:      j.progress,
		CurrentPage:   j.currentPage,
		MaxPages:      j.maxPages,
		ReviewCount:   len(j.reviews),
		Reviews:       []Review{},
		ProductTitle:  j.productTitle,
		ProductImage:  j.productImage,
		HasScreenshot: len(j.screenshot) > 0,
	}
	if j.status == StatusComplete {
		s.Reviews = append(s.Reviews, j.reviews...)
	}
	return s
}

// Reviews returns a copy of the accumulated reviews regardless of status.
func (j *Job) Reviews() []Review {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Review(nil), j.reviews...)
}

// Status returns the current state.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Message returns the human-readable phase text.
func (j *Job) Message() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.message
}

// Progress returns the completion percentage.
func (j *Job) Progress() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// FinishedAt returns when the job became terminal, or the zero time.
func (j *Job) FinishedAt() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt
}

// Transition moves the job to status with a human-readable message. It returns false
// and changes nothing when the job is already terminal.
func (j *Job) Transition(status JobStatus, message string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return false
	}
	j.status = status
	j.message = message
	switch status {
	case StatusComplete:
		j.progress = 100
		j.finishedAt = time.Now().UTC()
	case StatusError:
		j.finishedAt = time.Now().UTC()
	}
	if !status.Interactive() {
		j.screenshot = nil
		j.browserAttached = false
	}
	return true
}

// SetMessage updates the phase text without changing status.
func (j *Job) SetMessage(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.message = message
}

// SetProgress raises progress to p. Lower values are ignored so progress never decreases.
func (j *Job) SetProgress(p int) {
	if p > 100 {
		p = 100
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() || p <= j.progress {
		return
	}
	j.progress = p
}

// SetPage records the page currently being scraped.
func (j *Job) SetPage(current, max int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.currentPage = current
	j.maxPages = max
}

// SetReviews publishes the accumulated review list.
func (j *Job) SetReviews(reviews []Review) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.reviews = append(j.reviews[:0:0], reviews...)
}

// SetProduct stores product title and image.
func (j *Job) SetProduct(info ProductInfo) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return
	}
	j.productTitle = info.Title
	j.productImage = info.Image
}

// AttachBrowser marks whether a live browser session can receive input.
func (j *Job) AttachBrowser(attached bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.browserAttached = attached
}

// SetScreenshot stores the latest JPEG frame for the external viewer.
func (j *Job) SetScreenshot(img []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.status.Interactive() {
		return
	}
	j.screenshot = img
	j.screenshotSeq++
}

// Screenshot returns the latest frame and its sequence number.
func (j *Job) Screenshot() ([]byte, uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.screenshot, j.screenshotSeq
}

// EnqueueInput queues an input event for the owning job's browser session.
func (j *Job) EnqueueInput(ev InputEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	j.mu.RLock()
	ok := j.status.Interactive() && j.browserAttached
	j.mu.RUnlock()
	if !ok {
		return ErrNotInteractive
	}
	if j.limiter != nil && !j.limiter.Allow() {
		return ErrInputRateLimited
	}
	select {
	case j.inputs <- ev:
		return nil
	default:
		return ErrInputQueueFull
	}
}

// DrainInputs returns every queued input event without blocking.
func (j *Job) DrainInputs() []InputEvent {
	var out []InputEvent
	for {
		select {
		case ev := <-j.inputs:
			out = append(out, ev)
		default:
			return out
		}
	}
}
