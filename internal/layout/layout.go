// Package layout turns a report PDF into a model.ParsedDocument using an
// external (or local) layout extraction service.
package layout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/coinsight/internal/model"
	"github.com/ppiankov/coinsight/internal/util"
)

// Extractor analyzes one document
type Extractor interface {
	// Name identifies the service, recorded next to the cached result
	Name() string

	// Analyze reads the whole document and returns its layout.
	// Service failures are returned as-is; nothing is retried.
	Analyze(ctx context.Context, document io.Reader) (*Result, error)
}

// Result is a normalized document plus the service's verbatim response
type Result struct {
	Document *model.ParsedDocument
	Raw      []byte
}

// Option configures an extractor
type Option func(*options)

type options struct {
	logger *zap.Logger
	client *http.Client
}

// WithLogger sets the logger; the default discards
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client used by hosted services
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// NewExtractor builds the extractor named by cfg.Provider
func NewExtractor(cfg model.LayoutConfig, httpCfg model.HTTPConfig, opts ...Option) (Extractor, error) {
	o := buildOptions(opts)
	if o.client == nil {
		o.client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: util.NewTransport(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, ""),
		}
	}

	switch strings.ToLower(cfg.Provider) {
	case "azure", "azure-di", "document-intelligence":
		return NewAzureExtractor(cfg, o)
	case "mistral", "mistral-ocr":
		return NewMistralExtractor(cfg, o)
	case "local", "pdf":
		return NewLocalExtractor(o), nil
	default:
		return nil, fmt.Errorf("unknown layout provider: %s (supported: azure, mistral, local)", cfg.Provider)
	}
}
