package trend

// NameLookup resolves a country code to a display name.
type NameLookup interface {
	CountryName(code string) (string, bool)
}

// StaticNames is a fixed code→name table.
type StaticNames map[string]string

func (n StaticNames) CountryName(code string) (string, bool) {
	name, ok := n[code]
	return name, ok
}

// DefaultNames covers the countries the dashboard watches by default.
var DefaultNames = StaticNames{
	"UA": "Ukraine", "RU": "Russia", "CN": "China", "US": "United States",
	"IR": "Iran", "IL": "Israel", "TW": "Taiwan", "KP": "North Korea",
	"SA": "Saudi Arabia", "TR": "Turkey", "PL": "Poland", "DE": "Germany",
	"FR": "France", "GB": "United Kingdom", "IN": "India", "PK": "Pakistan",
	"SY": "Syria", "YE": "Yemen", "MM": "Myanmar", "VE": "Venezuela",
	"KH": "Cambodia",
}
