package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"ofertas-hunter/pkg/models"
)

// Client fetches a URL and hands back a parsed document. Each call uses a
// fresh collector so visited-URL bookkeeping never leaks between sources.
type Client struct {
	UserAgent string
	Timeout   time.Duration
}

func New(userAgent string, timeout time.Duration) *Client {
	return &Client{UserAgent: userAgent, Timeout: timeout}
}

// Document fetches rawURL and parses the response body. Non-2xx statuses,
// timeouts and transport failures all surface as a wrapped ErrFetchFailed.
func (c *Client) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := colly.NewCollector(
		colly.UserAgent(c.UserAgent),
	)
	if c.Timeout > 0 {
		col.SetRequestTimeout(c.Timeout)
	}

	var doc *goquery.Document
	var parseErr, fetchErr error

	col.OnResponse(func(r *colly.Response) {
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			parseErr = err
			return
		}
		doc = d
	})
	col.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := col.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrFetchFailed, rawURL, err)
	}
	col.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrFetchFailed, rawURL, fetchErr)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, parseErr)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: empty response", models.ErrFetchFailed, rawURL)
	}
	return doc, nil
}
