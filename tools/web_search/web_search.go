package web_search

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/tariffnews/tools/web_search/duckduckgo"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search/models"
)

// NewsSearcher runs a news query against a backend and returns its raw records
// in backend order.
type NewsSearcher interface {
	News(ctx context.Context, query string, opts models.NewsOptions) ([]models.Record, error)
}

type Provider string

const (
	DuckDuckGoProvider Provider = "duckduckgo"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

func NewNewsSearcher(provider Provider, opts ...duckduckgo.Option) (NewsSearcher, error) {
	switch provider {
	case DuckDuckGoProvider:
		return duckduckgo.New(opts...), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
