// Command review-extract runs the review heuristics over saved HTML pages.
// Several files are treated as consecutive pages of one review widget: each
// page is reached through the same next-page detection used against a live
// browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/export"
	"shopreviews/internal/adapters/htmlsnapshot"
	"shopreviews/internal/core/dedup"
	"shopreviews/internal/core/extract"
	"shopreviews/internal/core/paginate"
	"shopreviews/internal/core/patterns"
)

func main() {
	formatFlag := flag.String("format", "json", "Output format: json, csv or xlsx")
	out := flag.String("out", "", "Output file (default stdout)")
	strategies := flag.String("nav", "", "Comma separated next-page strategies (default all)")
	requireAuthor := flag.Bool("require-author", false, "Skip cards without a parsable author")
	verbose := flag.Bool("v", false, "Log per-page extraction tallies")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: review-extract [-format json|csv|xlsx] [-out file] page1.html [page2.html ...]")
		os.Exit(1)
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("format")
	}
	order, err := paginate.ParseStrategies(*strategies)
	if err != nil {
		logger.Fatal().Err(err).Msg("strategies")
	}

	pages, err := htmlsnapshot.Open(flag.Args()...)
	if err != nil {
		logger.Fatal().Err(err).Msg("open pages")
	}

	opts := extract.DefaultOptions()
	opts.RequireAuthor = *requireAuthor
	extractor := extract.NewExtractor(opts)
	navigator := paginate.NewNavigator(order, patterns.NavMinTop)
	acc := dedup.New()
	ctx := context.Background()

	if state, err := extract.Classify(ctx, pages); err == nil {
		logger.Info().Stringer("gate", state).Msg("first page classified")
	}

	for page := 1; page <= flag.NArg(); page++ {
		reviews, tally, err := extractor.Extract(ctx, pages)
		if err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("extraction failed")
		}
		added := acc.Add(reviews)
		logger.Debug().
			Int("page", page).
			Int("anchors", tally.Anchors).
			Int("emitted", tally.Emitted).
			Int("skipped_no_container", tally.SkippedNoContainer).
			Int("skipped_no_author", tally.SkippedNoAuthor).
			Int("skipped_short_body", tally.SkippedShortBody).
			Int("added", added).
			Msg("page extracted")

		if page == flag.NArg() {
			break
		}
		res, err := navigator.Advance(ctx, pages, page)
		if err != nil || !res.Advanced {
			logger.Info().Int("page", page).Msg("no next page control, stopping")
			break
		}
		logger.Debug().Str("strategy", string(res.Strategy)).Msg("advanced")
	}

	data, err := export.Render(format, acc.Reviews())
	if err != nil {
		logger.Fatal().Err(err).Msg("render")
	}
	if *out == "" {
		_, _ = os.Stdout.Write(data)
	} else if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
	logger.Info().Int("reviews", acc.Len()).Int("pages", pages.Page()).Msg("done")
}
