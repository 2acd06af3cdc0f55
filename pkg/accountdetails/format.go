package accountdetails

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NQTPerNXT is the number of NQT in one NXT.
const NQTPerNXT = 100_000_000

var printer = message.NewPrinter(language.English)

// FormatNQT renders a decimal NQT amount as NXT with grouped thousands and
// no trailing fraction zeros: "123456789012" -> "1,234.56789012".
func FormatNQT(nqt string) (string, error) {
	nqt = strings.TrimSpace(nqt)
	if nqt == "" {
		return "0", nil
	}

	amount, err := strconv.ParseInt(nqt, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse NQT amount %q: %w", nqt, err)
	}
	return formatAmount(amount), nil
}

// FormatNXT renders a whole-coin amount with grouped thousands.
func FormatNXT(nxt json.Number) (string, error) {
	if nxt == "" {
		return "0", nil
	}
	whole, err := nxt.Int64()
	if err != nil {
		return "", fmt.Errorf("parse NXT amount %q: %w", nxt, err)
	}
	return printer.Sprintf("%d", whole), nil
}

func formatAmount(nqt int64) string {
	// split before negating, negating math.MinInt64 overflows
	units, rest := nqt/NQTPerNXT, nqt%NQTPerNXT
	sign := ""
	if nqt < 0 {
		sign = "-"
		units, rest = -units, -rest
	}

	whole := printer.Sprintf("%d", units)
	fraction := strings.TrimRight(fmt.Sprintf("%08d", rest), "0")
	if fraction == "" {
		return sign + whole
	}
	return sign + whole + "." + fraction
}
