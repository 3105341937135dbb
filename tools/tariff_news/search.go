package tariffnews

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/tariffnews/internal/helpers"
	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search/models"
)

const (
	MsgNoResults          = "No results found for the specified query and time frame."
	MsgNoResultsProcessed = "No results found after processing."
	MsgBackendFailure     = "Error connecting to search service or processing results: "

	fallbackTitle = "N/A"
	fallbackURL   = "#"
)

// SearchOptions are fixed: worldwide, safe-search off, past week, ten results.
var SearchOptions = models.NewsOptions{
	Region:     "wt-wt",
	SafeSearch: "off",
	TimeLimit:  "w",
	MaxResults: 10,
}

type OutcomeKind int

const (
	OutcomePopulated OutcomeKind = iota
	OutcomeEmpty
	OutcomeBackendFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePopulated:
		return "populated"
	case OutcomeEmpty:
		return "empty"
	case OutcomeBackendFailure:
		return "backend_failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one backend search. Items is set only for
// OutcomePopulated; Message carries the user facing text otherwise and Err the
// backend error for OutcomeBackendFailure.
type Outcome struct {
	Kind    OutcomeKind
	Items   []ResultItem
	Message string
	Err     error
}

// Output returns the value serialized back to the caller: a SuccessOutput or
// an ErrorOutput.
func (o Outcome) Output() any {
	if o.Kind == OutcomePopulated {
		return SuccessOutput{Results: o.Items}
	}
	return ErrorOutput{Error: o.Message}
}

// Adapter runs queries against a news backend and classifies the result.
type Adapter struct {
	searcher web_search.NewsSearcher
	logger   *zap.Logger
	metrics  *runtime.Metrics
}

// NewAdapter wires the backend. logger and metrics may be nil.
func NewAdapter(searcher web_search.NewsSearcher, logger *zap.Logger, metrics *runtime.Metrics) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{searcher: searcher, logger: logger, metrics: metrics}
}

// Search makes exactly one backend call. It never returns an error; failures
// are folded into the Outcome.
func (a *Adapter) Search(ctx context.Context, query string) Outcome {
	ctx, span := runtime.StartSpan(ctx, "tariffnews.search", attribute.String("query", query))
	defer span.End()

	start := time.Now()
	out := a.search(ctx, query)
	a.metrics.ObserveSearch(out.Kind.String(), time.Since(start))

	span.SetAttributes(
		attribute.String("outcome", out.Kind.String()),
		attribute.Int("results", len(out.Items)),
	)
	if out.Err != nil {
		runtime.RecordError(span, out.Err)
	}
	return out
}

func (a *Adapter) search(ctx context.Context, query string) Outcome {
	records, err := a.searcher.News(ctx, query, SearchOptions)
	if err != nil {
		a.logger.Error("news search failed", zap.String("query", query), zap.Error(err))
		return Outcome{Kind: OutcomeBackendFailure, Message: MsgBackendFailure + err.Error(), Err: err}
	}
	if len(records) == 0 {
		a.logger.Info("news search returned nothing", zap.String("query", query))
		return Outcome{Kind: OutcomeEmpty, Message: MsgNoResults}
	}

	items := Normalize(records, a.logger)
	if len(items) == 0 {
		a.logger.Info("no usable news records", zap.String("query", query), zap.Int("raw", len(records)))
		return Outcome{Kind: OutcomeEmpty, Message: MsgNoResultsProcessed}
	}
	a.logger.Info("news search done", zap.String("query", query), zap.Int("results", len(items)))
	return Outcome{Kind: OutcomePopulated, Items: items}
}

// Normalize maps raw records to result items in backend order. Records with
// no title, url and body are dropped.
func Normalize(records []models.Record, logger *zap.Logger) []ResultItem {
	if logger == nil {
		logger = zap.NewNop()
	}
	items := make([]ResultItem, 0, len(records))
	for _, r := range records {
		if r.Title == "" && r.URL == "" && r.Body == "" {
			continue
		}
		item := ResultItem{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Body,
		}
		if item.Title == "" {
			item.Title = fallbackTitle
		}
		if item.URL == "" {
			item.URL = fallbackURL
		}
		if src, ok := helpers.SourceFromURL(item.URL); ok {
			item.Source = &src
		} else {
			logger.Warn("could not derive source from url", zap.String("url", item.URL))
		}
		if r.Date != "" {
			date := r.Date
			item.PublishedDate = &date
		}
		items = append(items, item)
	}
	return items
}
