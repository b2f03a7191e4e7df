package pipeline

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPrefix = regexp.MustCompile(`^([+-]?)(\d+(?:\.\d+)?|\.\d+)`)

// ParseAmount turns an amount cell into a decimal. Every character other than
// a digit, a sign or '.' is removed first, so "R$ -1,234.56" becomes -1234.56.
// The longest leading number of what remains is used; anything unparseable is
// zero. '.' is always the decimal separator.
func ParseAmount(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			return r
		default:
			return -1
		}
	}, s)

	m := amountPrefix.FindStringSubmatch(cleaned)
	if m == nil {
		return decimal.Zero
	}

	num := m[2]
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	if m[1] == "-" {
		d = d.Neg()
	}
	return d
}

// ParseCommaDecimalAmount reads amounts written with ',' as the decimal
// separator and '.' grouping thousands, as in "R$ -1.234,56". Values without
// a ',' are read by ParseAmount. It is used for ';'-delimited files, where a
// ',' cannot separate fields.
func ParseCommaDecimalAmount(s string) decimal.Decimal {
	if !strings.Contains(s, ",") {
		return ParseAmount(s)
	}
	s = strings.ReplaceAll(s, ".", "")
	return ParseAmount(strings.ReplaceAll(s, ",", "."))
}

// amountParserFor picks the amount reader matching the file's delimiter.
func amountParserFor(delim rune) func(string) decimal.Decimal {
	if delim == ';' {
		return ParseCommaDecimalAmount
	}
	return ParseAmount
}
