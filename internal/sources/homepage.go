package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/worker"
)

const homepageFooter = "All links have been processed."

// HomepageScraper collects the visible text of a fixed list of pages
type HomepageScraper struct {
	fetcher *Fetcher
	header  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewHomepageScraper returns a scraper using f. company names the
// progress header.
func NewHomepageScraper(f *Fetcher, company string, logger *zap.Logger) *HomepageScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomepageScraper{fetcher: f, header: homepageHeader(company), logger: logger, now: time.Now}
}

func homepageHeader(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return "[Homepage Search]"
	}
	return "[" + company + " Homepage Search]"
}

// Run fetches links in order. progress receives the accumulated
// messages after each extracted link and once more at 1.0 when the
// sequence ends. Failed links are logged and left out of the snapshot.
// Cancelling ctx stops before the next link and returns ctx.Err().
func (s *HomepageScraper) Run(ctx context.Context, links []string, progress func(model.ProgressEvent)) (*model.HomepageSnapshot, error) {
	results := make([]model.HomepagePage, 0, len(links))

	seq := worker.Sequence{
		Header: s.header,
		Footer: homepageFooter,
		Progress: func(messages []string, fraction float64) {
			if progress != nil {
				progress(model.ProgressEvent{Messages: messages, Fraction: fraction})
			}
		},
	}

	errs, err := seq.Run(ctx, len(links), func(ctx context.Context, i int) (string, error) {
		link := links[i]
		res, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			return "", err
		}
		text, err := VisibleText(res.Body)
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", fmt.Errorf("no visible text")
		}
		results = append(results, model.HomepagePage{Link: link, Content: text})
		return fmt.Sprintf("[%d] %s Extracted!", i+1, link), nil
	})
	if err != nil {
		return nil, fmt.Errorf("homepage scrape: %w", err)
	}

	for i, e := range errs {
		if e == nil {
			continue
		}
		level := s.logger.Warn
		if errors.Is(e, ErrDisallowed) {
			level = s.logger.Info
		}
		level("homepage link skipped", zap.String("link", links[i]), zap.Error(e))
	}

	return &model.HomepageSnapshot{
		Date:    model.DateStamp(s.now()),
		Results: results,
	}, nil
}
