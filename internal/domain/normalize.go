// backend-go/internal/domain/normalize.go
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// The vendor's analysis exports are not consistent about column names:
// older branches still report "amc" and "class" where newer ones send
// "adjusted_consumption_rate" and "abc_class". Aliases are resolved here,
// once, at the ingestion boundary, so nothing downstream ever has to
// guess a column name.
var analysisAliases = map[string][]string{
	"item_code":                 {"item_code", "itemcode", "product_code", "code"},
	"item_name":                 {"item_name", "itemname", "product_name", "description"},
	"abc_class":                 {"abc_class", "class", "abc", "classification"},
	"adjusted_consumption_rate": {"adjusted_consumption_rate", "amc", "consumption_rate", "avg_monthly_consumption"},
	"ideal_stock":               {"ideal_stock", "ideal", "ideal_qty", "max_stock"},
}

// NormalizeAnalysis converts one raw analysis row, keyed by whatever
// column names the feed used, into an AnalysisRecord. Numeric fields that
// are absent or unparseable default to zero; a missing item code is the
// only fatal condition.
func NormalizeAnalysis(branch, company string, raw map[string]string) (AnalysisRecord, error) {
	lowered := make(map[string]string, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	code := lookupAlias(lowered, "item_code")
	if code == "" {
		return AnalysisRecord{}, fmt.Errorf("analysis row for branch %s has no item code", branch)
	}

	return AnalysisRecord{
		Branch:          branch,
		Company:         company,
		ItemCode:        code,
		ItemName:        lookupAlias(lowered, "item_name"),
		ABCClass:        strings.ToUpper(lookupAlias(lowered, "abc_class")),
		ConsumptionRate: parseFloatOrZero(lookupAlias(lowered, "adjusted_consumption_rate")),
		IdealStock:      parseFloatOrZero(lookupAlias(lowered, "ideal_stock")),
	}, nil
}

func lookupAlias(row map[string]string, canonical string) string {
	for _, alias := range analysisAliases[canonical] {
		if v, ok := row[alias]; ok && v != "" {
			return v
		}
	}

	return ""
}

func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}

	return v
}
