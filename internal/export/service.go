package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/quotes"
	"github.com/limpio-app/limpio/report"
)

// batchConcurrency bounds parallel Gotenberg conversions.
const batchConcurrency = 3

// Renderer converts HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var _ Renderer = (*report.Client)(nil)

// Service renders quotes and invoices as PDF documents.
type Service struct {
	logger   *slog.Logger
	renderer Renderer
	quotes   *quotes.Service
	invoices *invoices.Service
	clients  *clients.Service
}

// NewService constructs an export Service.
func NewService(logger *slog.Logger, renderer Renderer, q *quotes.Service, inv *invoices.Service, cl *clients.Service) *Service {
	return &Service{logger: logger, renderer: renderer, quotes: q, invoices: inv, clients: cl}
}

// QuotePDF renders one quote.
func (s *Service) QuotePDF(ctx context.Context, accountID, id int64) ([]byte, string, error) {
	q, err := s.quotes.Get(ctx, accountID, id)
	if err != nil {
		return nil, "", err
	}
	client, err := s.clients.Get(ctx, accountID, q.ClientID)
	if err != nil {
		return nil, "", err
	}
	html, err := renderQuoteHTML(q, client)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, "", fmt.Errorf("render quote pdf: %w", err)
	}
	return pdf, fmt.Sprintf("presupuesto-%s.pdf", q.Number), nil
}

// InvoicePDF renders one invoice.
func (s *Service) InvoicePDF(ctx context.Context, accountID, id int64) ([]byte, string, error) {
	inv, err := s.invoices.Get(ctx, accountID, id)
	if err != nil {
		return nil, "", err
	}
	client, err := s.clients.Get(ctx, accountID, inv.ClientID)
	if err != nil {
		return nil, "", err
	}
	html, err := renderInvoiceHTML(inv, client)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, "", fmt.Errorf("render invoice pdf: %w", err)
	}
	return pdf, fmt.Sprintf("factura-%s.pdf", inv.Number), nil
}

// InvoiceBatchZip renders several invoices concurrently and packs them
// into one zip archive.
func (s *Service) InvoiceBatchZip(ctx context.Context, accountID int64, ids []int64) ([]byte, error) {
	type rendered struct {
		name string
		pdf  []byte
	}

	var (
		mu   sync.Mutex
		docs []rendered
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			pdf, name, err := s.InvoicePDF(gctx, accountID, id)
			if err != nil {
				return fmt.Errorf("invoice %d: %w", id, err)
			}
			mu.Lock()
			docs = append(docs, rendered{name: name, pdf: pdf})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, doc := range docs {
		f, err := zw.Create(doc.name)
		if err != nil {
			return nil, fmt.Errorf("zip entry: %w", err)
		}
		if _, err := f.Write(doc.pdf); err != nil {
			return nil, fmt.Errorf("zip write: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
