package pipeline

import (
	"encoding/csv"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Header tokens recognised by substring match against the lowercased header.
var (
	descriptionTokens = []string{"descr", "description"}
	amountTokens      = []string{"valor", "amount"}
	dateTokens        = []string{"data", "date"}
	categoryTokens    = []string{"categ"}
)

// Field is one named cell of a data line.
type Field struct {
	Name  string
	Value string
}

// RawRecord is one data line after parsing and before category resolution.
type RawRecord struct {
	Line   int     // 1-based line number in the uploaded text
	Fields []Field // every cell in column order

	Description string
	Amount      decimal.Decimal
	Date        string // as written in the file, or today's date
	Category    string // empty when the file has no category column
}

// Columns holds the inferred column indices. Category is -1 when the file
// has no category column.
type Columns struct {
	Description int
	Amount      int
	Date        int
	Category    int
}

type sourceLine struct {
	no   int
	text string
}

// Records is the lazily parsed body of an upload. It can be iterated once.
type Records struct {
	header  []string
	columns Columns
	delim   rune
	today   string
	lines   []sourceLine
	used    bool
}

// Parse reads the header row of rawText and infers the description, amount,
// date and optional category columns. It returns a *domain.FormatError when a
// mandatory column cannot be found. Data lines are parsed on iteration.
func Parse(rawText string, now time.Time) (*Records, error) {
	rawText = strings.TrimPrefix(rawText, "\ufeff")

	var lines []sourceLine
	for i, line := range strings.Split(rawText, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, sourceLine{no: i + 1, text: line})
	}

	if len(lines) == 0 {
		return nil, &domain.FormatError{}
	}

	delim := detectDelimiter(lines[0].text)
	headerFields, err := splitLine(lines[0].text, delim)
	if err != nil {
		return nil, &domain.FormatError{Missing: []string{"description", "amount", "date"}}
	}

	header := make([]string, len(headerFields))
	for i, h := range headerFields {
		header[i] = strings.ToLower(h)
	}

	cols, err := inferColumns(header)
	if err != nil {
		return nil, err
	}

	return &Records{
		header:  header,
		columns: cols,
		delim:   delim,
		today:   now.Format("2006-01-02"),
		lines:   lines[1:],
	}, nil
}

// Header returns the normalized header tokens.
func (r *Records) Header() []string {
	return append([]string(nil), r.header...)
}

// Columns returns the inferred column indices.
func (r *Records) Columns() Columns {
	return r.columns
}

// All yields one RawRecord per well-formed data line, in file order. Lines
// with fewer than three fields are skipped. A second call yields nothing.
func (r *Records) All() iter.Seq[RawRecord] {
	return func(yield func(RawRecord) bool) {
		if r.used {
			return
		}
		r.used = true

		for _, line := range r.lines {
			fields, err := splitLine(line.text, r.delim)
			if err != nil || len(fields) < minFields {
				continue
			}
			if !yield(r.record(line.no, fields)) {
				return
			}
		}
	}
}

func (r *Records) record(lineNo int, fields []string) RawRecord {
	rec := RawRecord{
		Line:        lineNo,
		Fields:      make([]Field, len(fields)),
		Description: fieldAt(fields, r.columns.Description),
		Amount:      amountParserFor(r.delim)(fieldAt(fields, r.columns.Amount)),
		Date:        fieldAt(fields, r.columns.Date),
		Category:    fieldAt(fields, r.columns.Category),
	}
	if rec.Date == "" {
		rec.Date = r.today
	}

	for i, v := range fields {
		name := "column_" + strconv.Itoa(i+1)
		if i < len(r.header) && r.header[i] != "" {
			name = r.header[i]
		}
		rec.Fields[i] = Field{Name: name, Value: v}
	}
	return rec
}

// inferColumns locates each column by the first header containing one of its
// tokens.
func inferColumns(header []string) (Columns, error) {
	cols := Columns{
		Description: findColumn(header, descriptionTokens),
		Amount:      findColumn(header, amountTokens),
		Date:        findColumn(header, dateTokens),
		Category:    findColumn(header, categoryTokens),
	}

	var missing []string
	if cols.Description < 0 {
		missing = append(missing, "description")
	}
	if cols.Amount < 0 {
		missing = append(missing, "amount")
	}
	if cols.Date < 0 {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return Columns{}, &domain.FormatError{Missing: missing}
	}

	return cols, nil
}

func findColumn(header []string, tokens []string) int {
	for i, h := range header {
		for _, tok := range tokens {
			if strings.Contains(h, tok) {
				return i
			}
		}
	}
	return -1
}

// detectDelimiter picks the most frequent of ',', ';' and tab in the header
// line. Ties go to the earlier candidate.
func detectDelimiter(header string) rune {
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// splitLine tokenizes one line and trims every field.
func splitLine(line string, delim rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	fields, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func fieldAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
