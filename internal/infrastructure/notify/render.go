// Package notify delivers non-empty scan results to people: an HTML e-mail
// over SMTP and a chat webhook.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"arbscan-service/internal/domain"
)

// Subject is the alert title for n opportunities.
func Subject(n int) string {
	return fmt.Sprintf("Arbitrage alert: %d opportunities found", n)
}

type row struct {
	Pair      string
	Buy       string
	Sell      string
	BuyPrice  string
	SellPrice string
	Profit    string
}

func rows(result domain.ScanResult) []row {
	out := make([]row, 0, len(result))
	for _, o := range result {
		out = append(out, row{
			Pair:      string(o.Pair),
			Buy:       strings.ToUpper(o.BuySource),
			Sell:      strings.ToUpper(o.SellSource),
			BuyPrice:  "$" + o.BuyPrice.StringFixed(4),
			SellPrice: "$" + o.SellPrice.StringFixed(4),
			Profit:    o.ProfitPct.StringFixed(2) + "%",
		})
	}
	return out
}

var htmlTmpl = template.Must(template.New("alert").Parse(`<html>
<head>
<style>
  body { font-family: Arial, sans-serif; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
  th { background-color: #4CAF50; color: white; }
  tr:nth-child(even) { background-color: #f2f2f2; }
  .profit { color: #4CAF50; font-weight: bold; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<p>Detected at: {{.DetectedAt}}</p>
<table>
<tr><th>Pair</th><th>Buy on</th><th>Sell on</th><th>Buy price</th><th>Sell price</th><th>Profit</th></tr>
{{- range .Rows}}
<tr><td>{{.Pair}}</td><td>{{.Buy}}</td><td>{{.Sell}}</td><td>{{.BuyPrice}}</td><td>{{.SellPrice}}</td><td class="profit">{{.Profit}}</td></tr>
{{- end}}
</table>
<p>Prices are indicative; fees, slippage and transfer times are not included.</p>
</body>
</html>
`))

// RenderHTML renders result as the e-mail HTML table.
func RenderHTML(result domain.ScanResult) (string, error) {
	data := struct {
		Title      string
		DetectedAt string
		Rows       []row
	}{
		Title: Subject(len(result)),
		Rows:  rows(result),
	}
	if len(result) > 0 {
		data.DetectedAt = result[0].DetectedAt.UTC().Format("2006-01-02 15:04:05 MST")
	}
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render html: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders result as one line per opportunity.
func RenderText(result domain.ScanResult) string {
	var b strings.Builder
	for i, r := range rows(result) {
		fmt.Fprintf(&b, "%d. %s buy %s @ %s, sell %s @ %s, profit %s\n",
			i+1, r.Pair, r.Buy, r.BuyPrice, r.Sell, r.SellPrice, r.Profit)
	}
	return b.String()
}
