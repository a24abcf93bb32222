package cache

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// TitleUnparsed is the title of a record whose description did not match
// the structured form. Not an error condition; the raw description is
// kept for display and indexing.
const TitleUnparsed = "title not parsed"

// descriptionRE matches the structured description form:
// "<title ending in a period>. <Month> <Year>. (<flags>)".
var descriptionRE = regexp.MustCompile(`^(.*\.) ([A-Z][a-z]+ \d+)\. (\(.*\))$`)

// dateLayout parses the month-and-year segment of a description.
const dateLayout = "January 2006"

// Record is one parsed registry entry. Equality and ordering between
// records are defined solely by Number.
type Record struct {
	// Number is the document number, immutable once constructed.
	Number int

	// Title is the parsed title, or TitleUnparsed.
	Title string

	// Date is the publication month and year. The zero time means the
	// description carried no parseable date.
	Date time.Time

	// Flags holds the parenthesised, colon-delimited status annotations,
	// e.g. "Status" -> "PROPOSED STANDARD".
	Flags map[string]string

	// Description is the original space-joined description text,
	// retained verbatim.
	Description string
}

// ParseRecord builds a Record from a document number and its raw
// description. A description that is not valid UTF-8 is a hard error for
// this record; a description that merely fails the structured match falls
// back to defaults.
func ParseRecord(number int, description string) (Record, error) {
	if !utf8.ValidString(description) {
		return Record{}, newError(ErrCharset, "RFC %d: description is not valid UTF-8", number)
	}

	r := Record{
		Number:      number,
		Title:       TitleUnparsed,
		Flags:       map[string]string{},
		Description: description,
	}

	m := descriptionRE.FindStringSubmatch(description)
	if m == nil {
		return r, nil
	}

	r.Title = m[1]
	if date, err := time.Parse(dateLayout, m[2]); err == nil {
		r.Date = date
	}
	r.Flags = parseFlags(m[3])

	return r, nil
}

// parseFlags splits the parenthesised segment on ')', strips each
// fragment of leading whitespace and '(', and cuts it on the first ':'
// into a trimmed key/value pair. Fragments without a ':' are dropped.
func parseFlags(value string) map[string]string {
	flags := map[string]string{}
	for _, frag := range strings.Split(strings.TrimSpace(value), ")") {
		frag = strings.TrimLeft(frag, " (")
		if strings.TrimSpace(frag) == "" {
			continue
		}
		key, val, ok := strings.Cut(frag, ":")
		if !ok {
			continue
		}
		flags[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return flags
}

// Equal reports whether two records identify the same document.
func (r Record) Equal(other Record) bool {
	return r.Number == other.Number
}

// Less orders records by document number.
func (r Record) Less(other Record) bool {
	return r.Number < other.Number
}

// HasDate reports whether the description carried a parseable date.
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// String returns the record title for display.
func (r Record) String() string {
	return r.Title
}
