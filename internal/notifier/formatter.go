package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"InstabilitySentinel/internal/model"
)

var arrows = map[model.Direction]string{
	model.Rising:  "▲",
	model.Falling: "▼",
	model.Stable:  "■",
}

// Digest is the input of the periodic report.
type Digest struct {
	GeneratedAt time.Time
	Tracked     int
	Rising      []model.CountryTrend
	Falling     []model.CountryTrend
	Volatile    []model.CountryTrend
}

// FormatDigest renders the rising / falling / volatile summary. Output is
// sent with HTML parse mode, so names and codes are escaped.
func FormatDigest(d *Digest) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Instability digest</b> | %s\n", d.GeneratedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Tracked countries: %d\n", d.Tracked))

	section := func(title string, trends []model.CountryTrend, line func(model.CountryTrend) string) {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", title))
		if len(trends) == 0 {
			b.WriteString("  none\n")
			return
		}
		for i, t := range trends {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, line(t)))
		}
	}
	change := func(t model.CountryTrend) string {
		return fmt.Sprintf("%s (%s) %.1f, 7d %+.1f", html.EscapeString(t.Name), html.EscapeString(t.Code), t.CurrentScore, t.Change7d)
	}
	section("Rising", d.Rising, change)
	section("Falling", d.Falling, change)
	section("Most volatile", d.Volatile, func(t model.CountryTrend) string {
		return fmt.Sprintf("%s (%s) σ %.1f", html.EscapeString(t.Name), html.EscapeString(t.Code), t.Volatility)
	})
	return b.String()
}

// FormatTrend renders one country trend.
func FormatTrend(t *model.CountryTrend) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s): %s\n", arrows[t.Trend], html.EscapeString(t.Name), html.EscapeString(t.Code), t.Trend))
	b.WriteString(fmt.Sprintf("Current: %.1f\n", t.CurrentScore))
	b.WriteString(fmt.Sprintf("24h: %+.1f | 7d: %+.1f | 30d: %+.1f\n", t.Change24h, t.Change7d, t.Change30d))
	b.WriteString(fmt.Sprintf("Volatility (7d): %.1f\n", t.Volatility))
	b.WriteString(fmt.Sprintf("Last sample: %s\n", t.LastUpdated.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatComponentTrend renders one component trend.
func FormatComponentTrend(c *model.ComponentTrend) string {
	return fmt.Sprintf("%s %s/%s: %s\nCurrent: %.1f | 7d mean: %.1f | 30d mean: %.1f\n",
		arrows[c.Trend], html.EscapeString(c.Code), html.EscapeString(c.Component), c.Trend, c.CurrentValue, c.Baseline7d, c.Baseline30d)
}
