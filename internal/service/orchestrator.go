package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/downloader"
	"shopreviews/internal/core/dedup"
	"shopreviews/internal/core/domain"
	"shopreviews/internal/core/extract"
	"shopreviews/internal/core/paginate"
	"shopreviews/internal/core/patterns"
	"shopreviews/internal/core/ports"
	"shopreviews/internal/core/probe"
)

// GateTimeoutMessage is shown when the CAPTCHA is not cleared within the bound.
const GateTimeoutMessage = "CAPTCHA was not solved in time. Please try again."

// Options holds the orchestrator tunables. Every wait is a bounded poll.
type Options struct {
	Launch ports.LaunchOptions

	NavTimeout       time.Duration
	GateTimeout      time.Duration
	GatePollInterval time.Duration

	// RenderRetries polls of RenderInterval wait for at least MinCards anchors.
	RenderRetries  int
	RenderInterval time.Duration
	MinCards       int

	// PageSettle is the pause after a successful next-page click.
	PageSettle time.Duration

	Strategies []paginate.Strategy
	NavMinTop  float64
	Extract    extract.Options
}

// DefaultOptions returns production timeouts and the default navigator order.
func DefaultOptions() Options {
	return Options{
		Launch: ports.LaunchOptions{
			Headless:          true,
			ViewportWidth:     1280,
			ViewportHeight:    800,
			ScreenshotQuality: 50,
		},
		NavTimeout:       60 * time.Second,
		GateTimeout:      180 * time.Second,
		GatePollInterval: 500 * time.Millisecond,
		RenderRetries:    10,
		RenderInterval:   500 * time.Millisecond,
		MinCards:         1,
		PageSettle:       1500 * time.Millisecond,
		Strategies:       paginate.DefaultOrder,
		NavMinTop:        patterns.NavMinTop,
		Extract:          extract.DefaultOptions(),
	}
}

// ProberFactory builds the DOM query layer for a live browser.
type ProberFactory func(ports.Browser) probe.Prober

func scriptProber(b ports.Browser) probe.Prober {
	return probe.NewScriptProber(b)
}

// Orchestrator drives one job from browser launch to the final review list.
type Orchestrator struct {
	launcher   ports.Launcher
	downloader ports.Downloader
	storage    ports.Storage
	probers    ProberFactory
	extractor  *extract.Extractor
	navigator  *paginate.Navigator
	opts       Options
	logger     zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator. downloader and storage may be nil,
// which disables artifact saving.
func NewOrchestrator(
	launcher ports.Launcher,
	downloader ports.Downloader,
	storage ports.Storage,
	opts Options,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		launcher:   launcher,
		downloader: downloader,
		storage:    storage,
		probers:    scriptProber,
		extractor:  extract.NewExtractor(opts.Extract),
		navigator:  paginate.NewNavigator(opts.Strategies, opts.NavMinTop),
		opts:       opts,
		logger:     logger,
	}
}

// WithProberFactory replaces the script prober, e.g. with an HTML fixture prober.
func (o *Orchestrator) WithProberFactory(f ProberFactory) *Orchestrator {
	o.probers = f
	return o
}

// run carries the per-job collaborators through the phases.
type run struct {
	job     *domain.Job
	browser ports.Browser
	prober  probe.Prober
	log     zerolog.Logger
	pages   int
}

// RunJob executes a complete scraping job. It is the only writer of job. The
// returned error is non-nil whenever the job ends in the error state.
func (o *Orchestrator) RunJob(ctx context.Context, job *domain.Job) (result *domain.JobResult, err error) {
	r := &run{job: job, log: o.logger.With().Str("job_id", job.ID).Logger()}
	result = &domain.JobResult{JobID: job.ID}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("job panicked")
			err = fmt.Errorf("job panicked: %v", p)
			o.fail(r, result, "Scraping failed: internal error")
		}
		result.ReviewCount = len(job.Reviews())
		result.Pages = r.pages
		result.CompletedAt = time.Now().UTC()
	}()

	job.Transition(domain.StatusStarting, "Launching browser...")
	job.SetProgress(1)
	r.log.Info().Str("url", job.URL).Str("product_id", job.ProductID).Msg("starting job")
	o.initArtifacts(ctx, r, result)

	browser, err := o.launcher.Launch(ctx, o.opts.Launch)
	if err != nil {
		r.log.Error().Err(err).Str("driver", o.launcher.Name()).Msg("browser launch failed")
		o.fail(r, result, "Failed to start browser")
		return result, err
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("browser close failed")
		}
	}()
	r.browser = browser
	r.prober = o.probers(browser)
	job.AttachBrowser(true)

	job.Transition(domain.StatusLoading, "Loading product page...")
	job.SetProgress(2)
	if err := o.navigate(ctx, r); err != nil {
		if errors.Is(err, domain.ErrDriver) {
			o.fail(r, result, "Browser error while loading the page")
			return result, err
		}
		r.log.Warn().Err(err).Msg("navigation incomplete, continuing with partial page")
	}

	job.Transition(domain.StatusCaptcha, "Waiting for CAPTCHA to be solved...")
	job.SetProgress(5)
	state, err := o.awaitGate(ctx, r)
	if err != nil {
		msg := "Browser error while waiting for the page"
		if errors.Is(err, domain.ErrGateTimeout) {
			msg = GateTimeoutMessage
		}
		o.fail(r, result, msg)
		return result, err
	}
	r.log.Info().Stringer("gate", state).Msg("gate cleared")

	job.Transition(domain.StatusScraping, "CAPTCHA solved! Loading reviews...")
	job.SetProgress(10)

	if err := o.revealReviews(ctx, r); err != nil {
		o.fail(r, result, "Browser error while loading reviews")
		return result, err
	}
	if info, err := r.prober.Product(ctx); err != nil {
		r.log.Warn().Err(err).Msg("product info unavailable")
	} else {
		job.SetProduct(info)
		r.log.Info().Str("title", truncate(info.Title, 50)).Msg("product")
	}

	reviews, err := o.scrape(ctx, r)
	if err != nil {
		o.fail(r, result, "Browser error while scraping reviews")
		return result, err
	}

	o.saveArtifacts(ctx, r, reviews)
	job.Transition(domain.StatusComplete, fmt.Sprintf("Complete! Found %d reviews", len(reviews)))
	result.Success = true
	r.log.Info().Int("reviews", len(reviews)).Int("pages", r.pages).Msg("job completed")
	return result, nil
}

// navigate loads the job URL. While the load is in flight the viewer keeps
// receiving frames and queued input is replayed every GatePollInterval.
func (o *Orchestrator) navigate(ctx context.Context, r *run) error {
	done := make(chan error, 1)
	go func() { done <- r.browser.Navigate(ctx, r.job.URL, o.opts.NavTimeout) }()

	ticker := time.NewTicker(max(o.opts.GatePollInterval, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.refreshViewer(ctx, r); err != nil {
				return err
			}
		}
	}
}

// refreshViewer replays queued input and publishes a new screenshot. Only
// driver faults are returned.
func (o *Orchestrator) refreshViewer(ctx context.Context, r *run) error {
	if err := o.replayInputs(ctx, r); err != nil {
		return err
	}
	img, err := r.browser.Screenshot(ctx)
	switch {
	case err == nil:
		r.job.SetScreenshot(img)
	case errors.Is(err, domain.ErrDriver):
		return err
	default:
		r.log.Debug().Err(err).Msg("screenshot failed")
	}
	return nil
}

// awaitGate polls the classifier until the gate clears. Each tick replays
// queued input events and refreshes the viewer screenshot.
func (o *Orchestrator) awaitGate(ctx context.Context, r *run) (domain.GateState, error) {
	deadline := time.Now().Add(o.opts.GateTimeout)
	for {
		if err := o.refreshViewer(ctx, r); err != nil {
			return domain.Gated, err
		}

		state, err := extract.Classify(ctx, r.prober)
		if state.Cleared() {
			return state, nil
		}
		if err != nil {
			if errors.Is(err, domain.ErrDriver) {
				return domain.Gated, err
			}
			r.log.Debug().Err(err).Msg("classifier probe failed")
		}

		if time.Now().After(deadline) {
			r.log.Warn().Dur("timeout", o.opts.GateTimeout).Msg("gate not cleared")
			return domain.Gated, domain.ErrGateTimeout
		}
		if err := r.browser.Wait(ctx, o.opts.GatePollInterval); err != nil {
			return domain.Gated, err
		}
	}
}

func (o *Orchestrator) replayInputs(ctx context.Context, r *run) error {
	for _, ev := range r.job.DrainInputs() {
		if err := r.browser.Input(ctx, ev); err != nil {
			if errors.Is(err, domain.ErrDriver) {
				return err
			}
			r.log.Debug().Err(err).Str("type", string(ev.Type)).Msg("input replay failed")
		}
	}
	return nil
}

var revealFractions = []float64{0.3, 0.5, 0.7}

// revealReviews scrolls toward the review widget so lazily rendered cards load.
// Only driver faults are returned.
func (o *Orchestrator) revealReviews(ctx context.Context, r *run) error {
	steps := make([]func() error, 0, len(revealFractions)+4)
	for _, f := range revealFractions {
		steps = append(steps, func() error { return r.prober.ScrollToFraction(ctx, f) })
	}
	steps = append(steps, func() error { return r.prober.FocusFirstAnchor(ctx) })
	for range 3 {
		steps = append(steps, func() error { return r.browser.ScrollBy(ctx, 0, 400) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			if errors.Is(err, domain.ErrDriver) {
				return err
			}
			r.log.Debug().Err(err).Msg("scroll step failed")
		}
		if err := r.browser.Wait(ctx, o.opts.RenderInterval); err != nil {
			return err
		}
	}
	return nil
}

// scrape runs the page loop. It never runs more than the job's page budget.
func (o *Orchestrator) scrape(ctx context.Context, r *run) ([]domain.Review, error) {
	maxPages := r.job.Snapshot().MaxPages
	acc := dedup.New()

	for page := 1; page <= maxPages; page++ {
		r.pages = page
		r.job.SetPage(page, maxPages)
		r.job.SetMessage(fmt.Sprintf("Scraping page %d...", page))

		if err := o.waitForCards(ctx, r); err != nil {
			return acc.Reviews(), err
		}

		reviews, tally, err := o.extractor.Extract(ctx, r.prober)
		if err != nil {
			if errors.Is(err, domain.ErrDriver) {
				return acc.Reviews(), err
			}
			r.log.Warn().Err(err).Int("page", page).Msg("extraction failed, page skipped")
		}
		added := acc.Add(reviews)
		r.job.SetReviews(acc.Reviews())
		r.job.SetProgress(scrapeProgress(page, maxPages))
		r.log.Debug().
			Int("page", page).
			Int("anchors", tally.Anchors).
			Int("emitted", tally.Emitted).
			Int("anonymous", tally.Anonymous).
			Int("skipped_no_container", tally.SkippedNoContainer).
			Int("skipped_no_author", tally.SkippedNoAuthor).
			Int("skipped_short_body", tally.SkippedShortBody).
			Int("faults", tally.Faults).
			Int("added", added).
			Int("total", acc.Len()).
			Msg("page extracted")

		if page >= maxPages {
			break
		}

		if err := r.browser.ScrollBy(ctx, 0, 400); err != nil && errors.Is(err, domain.ErrDriver) {
			return acc.Reviews(), err
		}
		res, err := o.navigator.Advance(ctx, r.prober, page)
		if err != nil {
			if errors.Is(err, domain.ErrDriver) {
				return acc.Reviews(), err
			}
			r.log.Warn().Err(err).Int("page", page).Msg("pagination probe failed, stopping")
			break
		}
		if !res.Advanced {
			r.log.Info().Int("page", page).Msg("no next page")
			break
		}
		r.log.Debug().Str("strategy", string(res.Strategy)).Str("text", res.Candidate.Text).Msg("clicked next")
		if err := r.browser.Wait(ctx, o.opts.PageSettle); err != nil {
			return acc.Reviews(), err
		}
	}
	return acc.Reviews(), nil
}

// waitForCards polls the anchor count until MinCards render or retries run out.
// Running out is not an error: the page may simply have no reviews.
func (o *Orchestrator) waitForCards(ctx context.Context, r *run) error {
	for i := 0; i < o.opts.RenderRetries; i++ {
		n, err := r.prober.AnchorCount(ctx)
		if err != nil && errors.Is(err, domain.ErrDriver) {
			return err
		}
		if err == nil && n >= o.opts.MinCards {
			return nil
		}
		if err := r.browser.Wait(ctx, o.opts.RenderInterval); err != nil {
			return err
		}
	}
	r.log.Debug().Int("retries", o.opts.RenderRetries).Msg("review cards did not render")
	return nil
}

// scrapeProgress maps page n of max onto 10..99; 100 is reserved for completion.
func scrapeProgress(page, maxPages int) int {
	if maxPages <= 0 {
		return 10
	}
	return min(99, 10+page*89/maxPages)
}

func (o *Orchestrator) fail(r *run, result *domain.JobResult, msg string) {
	r.job.Transition(domain.StatusError, msg)
	result.Success = false
	result.ErrorMessage = msg
}

func (o *Orchestrator) initArtifacts(ctx context.Context, r *run, result *domain.JobResult) {
	if o.storage == nil {
		return
	}
	if err := o.storage.InitJob(ctx, r.job.ID); err != nil {
		r.log.Warn().Err(err).Msg("failed to init job storage")
		return
	}
	result.ArtifactsPath = o.storage.GetJobPath(r.job.ID)

	input, _ := json.MarshalIndent(map[string]any{
		"job_id":     r.job.ID,
		"url":        r.job.URL,
		"product_id": r.job.ProductID,
		"max_pages":  r.job.Snapshot().MaxPages,
		"created_at": r.job.CreatedAt,
	}, "", "  ")
	if err := o.storage.SaveInput(ctx, r.job.ID, input); err != nil {
		r.log.Warn().Err(err).Msg("failed to save input")
	}
}

// saveArtifacts stores the review list, the product image and a final
// screenshot. Failures are logged only.
func (o *Orchestrator) saveArtifacts(ctx context.Context, r *run, reviews []domain.Review) {
	if o.storage == nil {
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	data, _ := json.MarshalIndent(reviews, "", "  ")
	if err := o.storage.SaveReviews(ctx, r.job.ID, data); err != nil {
		r.log.Warn().Err(err).Msg("failed to save reviews")
	}

	if img, err := r.browser.Screenshot(ctx); err == nil {
		if err := o.storage.SaveFile(ctx, r.job.ID, bytes.NewReader(img), "final.jpg"); err != nil {
			r.log.Warn().Err(err).Msg("failed to save final screenshot")
		}
	}

	image := r.job.Snapshot().ProductImage
	if o.downloader == nil || image == "" {
		return
	}
	body, contentType, err := o.downloader.Download(ctx, image)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to download product image")
		return
	}
	defer body.Close()
	if err := o.storage.SaveFile(ctx, r.job.ID, body, "product"+downloader.Extension(contentType)); err != nil {
		r.log.Warn().Err(err).Msg("failed to save product image")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
