package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/quotes"
)

// Documents are rendered in Spanish with es-ES number formatting.
var esPrinter = message.NewPrinter(language.Spanish)

func formatMoney(d decimal.Decimal) string {
	f, _ := d.Float64()
	return esPrinter.Sprintf("%v €", number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

type docLine struct {
	Concept   string
	Quantity  string
	UnitPrice string
	LineTotal string
}

type docData struct {
	Kind       string
	Number     string
	IssueDate  string
	ExtraLabel string
	ExtraDate  string
	Client     *clients.Client
	Lines      []docLine
	Subtotal   string
	Tax        string
	Total      string
	Notes      string
}

var docTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1a1a1a; margin: 2.5cm; }
  h1 { font-size: 20px; margin-bottom: 0; }
  .meta { color: #555; font-size: 12px; margin-bottom: 24px; }
  .client { margin-bottom: 24px; font-size: 13px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 4px; }
  td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 16px; width: 40%; margin-left: auto; font-size: 13px; }
  .totals td { border: none; padding: 3px 4px; }
  .totals .grand td { border-top: 2px solid #1a1a1a; font-weight: bold; }
  .notes { margin-top: 32px; font-size: 12px; color: #555; white-space: pre-wrap; }
</style>
</head>
<body>
  <h1>{{.Kind}} {{.Number}}</h1>
  <div class="meta">
    Fecha: {{.IssueDate}}{{if .ExtraDate}} · {{.ExtraLabel}}: {{.ExtraDate}}{{end}}
  </div>
  <div class="client">
    <strong>{{.Client.Name}}</strong><br>
    {{if .Client.Address}}{{.Client.Address}}<br>{{end}}
    {{if .Client.City}}{{.Client.City}}{{if .Client.PostalCode}} ({{.Client.PostalCode}}){{end}}<br>{{end}}
    {{if .Client.TaxID}}NIF: {{.Client.TaxID}}{{end}}
  </div>
  <table>
    <thead>
      <tr><th>Concepto</th><th class="num">Cantidad</th><th class="num">Precio</th><th class="num">Importe</th></tr>
    </thead>
    <tbody>
      {{range .Lines}}
      <tr><td>{{.Concept}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.LineTotal}}</td></tr>
      {{end}}
    </tbody>
  </table>
  <table class="totals">
    <tr><td>Base imponible</td><td class="num">{{.Subtotal}}</td></tr>
    <tr><td>IVA</td><td class="num">{{.Tax}}</td></tr>
    <tr class="grand"><td>Total</td><td class="num">{{.Total}}</td></tr>
  </table>
  {{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</body>
</html>`))

func renderQuoteHTML(q *quotes.Quote, client *clients.Client) (string, error) {
	data := docData{
		Kind:       "Presupuesto",
		Number:     q.Number,
		IssueDate:  formatDate(q.IssueDate),
		ExtraLabel: "Válido hasta",
		ExtraDate:  formatDate(q.ValidUntil),
		Client:     client,
		Subtotal:   formatMoney(q.Subtotal),
		Tax:        formatMoney(q.Tax),
		Total:      formatMoney(q.Total),
	}
	if q.Notes != nil {
		data.Notes = *q.Notes
	}
	for _, line := range q.Lines {
		data.Lines = append(data.Lines, docLine{
			Concept:   line.Concept,
			Quantity:  line.Quantity.String(),
			UnitPrice: formatMoney(line.UnitPrice),
			LineTotal: formatMoney(line.LineTotal),
		})
	}
	return renderDoc(data)
}

func renderInvoiceHTML(inv *invoices.Invoice, client *clients.Client) (string, error) {
	data := docData{
		Kind:      "Factura",
		Number:    inv.Number,
		IssueDate: formatDate(inv.IssueDate),
		Client:    client,
		Subtotal:  formatMoney(inv.Subtotal),
		Tax:       formatMoney(inv.Tax),
		Total:     formatMoney(inv.Total),
	}
	if inv.DueDate != nil {
		data.ExtraLabel = "Vencimiento"
		data.ExtraDate = formatDate(*inv.DueDate)
	}
	if inv.Notes != nil {
		data.Notes = *inv.Notes
	}
	for _, line := range inv.Lines {
		data.Lines = append(data.Lines, docLine{
			Concept:   line.Concept,
			Quantity:  line.Quantity.String(),
			UnitPrice: formatMoney(line.UnitPrice),
			LineTotal: formatMoney(line.LineTotal),
		})
	}
	return renderDoc(data)
}

func renderDoc(data docData) (string, error) {
	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}
