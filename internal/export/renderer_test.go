package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/quotes"
	_ "github.com/limpio-app/limpio/internal/testing/guard"
)

func TestFormatMoneySpanishLocale(t *testing.T) {
	require.Equal(t, "1.234,56 €", formatMoney(decimal.RequireFromString("1234.56")))
	require.Equal(t, "0,00 €", formatMoney(decimal.Zero))
	require.Equal(t, "25,50 €", formatMoney(decimal.RequireFromString("25.5")))
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "05/03/2026", formatDate(time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)))
}

func testClient() *clients.Client {
	taxID := "B12345678"
	addr := "Calle Mayor 1"
	return &clients.Client{ID: 1, Name: "Comunidad Sol", TaxID: &taxID, Address: &addr}
}

func TestRenderQuoteHTML(t *testing.T) {
	q := &quotes.Quote{
		Number:     "P-0001",
		IssueDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:   decimal.RequireFromString("100.00"),
		Tax:        decimal.RequireFromString("21.00"),
		Total:      decimal.RequireFromString("121.00"),
		Lines: []quotes.QuoteLine{{
			Concept:   "Limpieza general",
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.RequireFromString("50.00"),
			LineTotal: decimal.RequireFromString("100.00"),
		}},
	}

	html, err := renderQuoteHTML(q, testClient())
	require.NoError(t, err)
	require.Contains(t, html, "Presupuesto P-0001")
	require.Contains(t, html, "Comunidad Sol")
	require.Contains(t, html, "B12345678")
	require.Contains(t, html, "Limpieza general")
	require.Contains(t, html, "121,00 €")
	require.Contains(t, html, "01/03/2026")
	require.Contains(t, html, "31/03/2026")
}

func TestRenderInvoiceHTML(t *testing.T) {
	due := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
	notes := "Pago por transferencia"
	inv := &invoices.Invoice{
		Number:    "F-0012",
		IssueDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Subtotal:  decimal.RequireFromString("1000.00"),
		Tax:       decimal.RequireFromString("210.00"),
		Total:     decimal.RequireFromString("1210.00"),
		Notes:     &notes,
		Lines: []invoices.InvoiceLine{{
			Concept:   "Limpieza mensual",
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.RequireFromString("1000.00"),
			LineTotal: decimal.RequireFromString("1000.00"),
		}},
	}

	html, err := renderInvoiceHTML(inv, testClient())
	require.NoError(t, err)
	require.Contains(t, html, "Factura F-0012")
	require.Contains(t, html, "1.210,00 €")
	require.Contains(t, html, "05/04/2026")
	require.Contains(t, html, "Pago por transferencia")
}
