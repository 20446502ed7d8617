package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/fitsimg/errs"
)

// FITS layout constants.
const (
	CardSize  = 80   // bytes per header record
	BlockSize = 2880 // bytes per logical record

	valueIndicator = "= "
	keywordWidth   = 8
	fixedValueEnd  = 30 // column where fixed-format numbers and logicals end
	minStringWidth = 8  // minimum quoted string width
	hierarchPrefix = "HIERARCH "
	continuePrefix = "CONTINUE  "
)

// UndefinedValue is the type of Undefined.
type UndefinedValue struct{}

// Undefined is the value of a keyword whose value field is blank, for
// example a float that is NaN or infinite.
var Undefined = UndefinedValue{}

// Card is one keyword record of a header.
//
// Value holds one of string, bool, int64, uint64 (only above math.MaxInt64),
// float64 or UndefinedValue. Commentary cards (COMMENT, HISTORY and blank
// keywords) have a nil Value and carry their text in Comment.
type Card struct {
	Keyword string
	Value   any
	Comment string
}

// IsCommentary reports whether the card is a COMMENT, HISTORY or blank keyword record.
func (c Card) IsCommentary() bool {
	return isCommentaryKeyword(c.Keyword)
}

func isCommentaryKeyword(keyword string) bool {
	switch keyword {
	case "COMMENT", "HISTORY", "":
		return true
	default:
		return false
	}
}

// NewCard validates keyword and value and returns the normalized card.
//
// Keywords are upper-cased. Names that are not valid standard keywords
// (longer than 8 characters or containing other characters than A-Z, 0-9,
// '-' and '_') are written with the HIERARCH convention. Go integers,
// unsigned integers, floats, bools and strings are accepted as values.
func NewCard(keyword string, value any, comment string) (Card, error) {
	name, err := normalizeKeyword(keyword)
	if err != nil {
		return Card{}, err
	}

	if !isPrintable(comment) {
		return Card{}, fmt.Errorf("%w: comment of %s contains non-printable characters", errs.ErrInvalidValue, name)
	}

	if isCommentaryKeyword(name) {
		text, ok := value.(string)
		if value != nil && !ok {
			return Card{}, fmt.Errorf("%w: %s takes text, got %T", errs.ErrInvalidValue, name, value)
		}
		if text != "" && comment != "" {
			text += " " + comment
		} else if text == "" {
			text = comment
		}
		if !isPrintable(text) {
			return Card{}, fmt.Errorf("%w: %s text contains non-printable characters", errs.ErrInvalidValue, name)
		}

		return Card{Keyword: name, Comment: text}, nil
	}

	v, err := normalizeValue(value)
	if err != nil {
		return Card{}, fmt.Errorf("%w: keyword %s", err, name)
	}

	card := Card{Keyword: name, Value: v, Comment: comment}
	if _, err := card.AppendTo(nil); err != nil {
		return Card{}, err
	}

	return card, nil
}

// normalizeKeyword upper-cases and validates a keyword name. A leading
// "HIERARCH " is stripped.
func normalizeKeyword(keyword string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(keyword))
	if rest, ok := strings.CutPrefix(name, hierarchPrefix); ok {
		name = strings.TrimSpace(rest)
	}

	if name == "END" || name == "CONTINUE" {
		return "", fmt.Errorf("%w: %q is reserved", errs.ErrInvalidKeyword, name)
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < ' ' || c > '~' || c == '=' {
			return "", fmt.Errorf("%w: %q", errs.ErrInvalidKeyword, keyword)
		}
	}

	if len(hierarchPrefix)+len(name)+len(" = ")+1 > CardSize {
		return "", fmt.Errorf("%w: %q is too long", errs.ErrInvalidKeyword, keyword)
	}

	return name, nil
}

// isStandardKeyword reports whether name fits the 8 character keyword field.
func isStandardKeyword(name string) bool {
	if len(name) > keywordWidth {
		return false
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return false
		}
	}

	return true
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || s[i] > '~' {
			return false
		}
	}

	return true
}

// normalizeValue maps Go values onto the card value types.
func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if !isPrintable(v) {
			return nil, fmt.Errorf("%w: string contains non-printable characters", errs.ErrInvalidValue)
		}

		return v, nil
	case bool:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return normalizeUint(uint64(v)), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return normalizeUint(v), nil
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Undefined, nil
		}
		// keep the shortest decimal form of the float32
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'G', -1, 32), 64)

		return f, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Undefined, nil
		}

		return v, nil
	case UndefinedValue, nil:
		return Undefined, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", errs.ErrInvalidValue, value)
	}
}

func normalizeUint(v uint64) any {
	if v <= math.MaxInt64 {
		return int64(v)
	}

	return v
}

// FormatFloat formats f the way real values are written into cards: the
// shortest representation that parses back to f, always with a decimal
// point and an upper-case exponent.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if strings.ContainsAny(s, ".") {
		return s
	}
	if mantissa, exp, ok := strings.Cut(s, "E"); ok {
		return mantissa + ".0E" + exp
	}

	return s + ".0"
}

// formatFixed renders non-string values; it returns "" for Undefined.
func formatFixed(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "T"
		}

		return "F"
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return FormatFloat(v)
	default:
		return ""
	}
}

// quoteString escapes embedded quotes and wraps s in quotes, padding the
// text to minWidth characters.
func quoteString(s string, minWidth int) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if pad := minWidth - len(escaped); pad > 0 {
		escaped += strings.Repeat(" ", pad)
	}

	return "'" + escaped + "'"
}

// AppendTo appends the 80-byte records of the card to dst. Long string
// values span several records using CONTINUE cards.
func (c Card) AppendTo(dst []byte) ([]byte, error) {
	if isCommentaryKeyword(c.Keyword) {
		return appendCommentary(dst, c.Keyword, c.Comment), nil
	}

	var prefix string
	standard := isStandardKeyword(c.Keyword)
	if standard {
		prefix = fmt.Sprintf("%-8s%s", c.Keyword, valueIndicator)
	} else {
		prefix = hierarchPrefix + c.Keyword + " " + valueIndicator
	}

	if s, ok := c.Value.(string); ok {
		return appendString(dst, prefix, s, c.Comment, standard)
	}

	field := formatFixed(c.Value)
	if standard {
		// logicals and numbers end in column 30
		field = fmt.Sprintf("%*s", fixedValueEnd-len(prefix), field)
	}

	line := prefix + field
	if len(line) > CardSize {
		return dst, fmt.Errorf("%w: value of %s does not fit in a card", errs.ErrInvalidValue, c.Keyword)
	}

	return appendRecord(dst, withComment(line, c.Comment)), nil
}

// appendString writes a string value, splitting it over CONTINUE cards when
// it does not fit.
func appendString(dst []byte, prefix, s, comment string, standard bool) ([]byte, error) {
	minWidth := 0
	if standard {
		minWidth = minStringWidth
	}

	quoted := quoteString(s, minWidth)
	if len(prefix)+len(quoted) <= CardSize {
		return appendRecord(dst, withComment(prefix+quoted, comment)), nil
	}

	chunks, err := splitLongString(s, CardSize-len(prefix)-3, CardSize-len(continuePrefix)-3)
	if err != nil {
		return dst, err
	}

	for i, chunk := range chunks {
		p := prefix
		if i > 0 {
			p = continuePrefix
		}

		if i == len(chunks)-1 {
			dst = appendRecord(dst, withComment(p+quoteString(chunk, 0), comment))
		} else {
			dst = appendRecord(dst, p+"'"+strings.ReplaceAll(chunk, "'", "''")+"&'")
		}
	}

	return dst, nil
}

// splitLongString cuts s into pieces whose escaped length is at most
// firstCap for the first piece and nextCap for the others. Doubled quotes
// are never split.
func splitLongString(s string, firstCap, nextCap int) ([]string, error) {
	if firstCap < 2 || nextCap < 2 {
		return nil, fmt.Errorf("%w: no room for a string value", errs.ErrInvalidKeyword)
	}

	var chunks []string
	capacity := firstCap
	start, width := 0, 0
	for i := 0; i < len(s); i++ {
		w := 1
		if s[i] == '\'' {
			w = 2
		}
		if width+w > capacity {
			chunks = append(chunks, s[start:i])
			start, width = i, 0
			capacity = nextCap
		}
		width += w
	}
	chunks = append(chunks, s[start:])

	return chunks, nil
}

// withComment appends " / comment" when there is room, truncating the comment.
func withComment(line, comment string) string {
	if comment == "" {
		return line
	}

	room := CardSize - len(line) - len(" / ")
	if room <= 0 {
		return line
	}
	if len(comment) > room {
		comment = comment[:room]
	}

	return line + " / " + comment
}

// appendCommentary writes text after the keyword field, splitting it into
// as many records as needed.
func appendCommentary(dst []byte, keyword, text string) []byte {
	const width = CardSize - keywordWidth

	prefix := fmt.Sprintf("%-8s", keyword)
	if text == "" {
		return appendRecord(dst, prefix)
	}

	for len(text) > 0 {
		n := min(width, len(text))
		dst = appendRecord(dst, prefix+text[:n])
		text = text[n:]
	}

	return dst
}

// appendRecord appends line padded with blanks to CardSize.
func appendRecord(dst []byte, line string) []byte {
	dst = append(dst, line...)
	for i := len(line); i < CardSize; i++ {
		dst = append(dst, ' ')
	}

	return dst
}

// parseCard decodes one 80-byte record. CONTINUE records are returned with
// the keyword CONTINUE and their string fragment as Value.
func parseCard(rec []byte) (Card, error) {
	if len(rec) != CardSize {
		return Card{}, fmt.Errorf("%w: record of %d bytes", errs.ErrInvalidHeader, len(rec))
	}
	if !isPrintable(string(rec)) {
		return Card{}, fmt.Errorf("%w: non-printable characters in %q", errs.ErrInvalidHeader, rec[:keywordWidth])
	}

	line := string(rec)
	keyword := strings.TrimRight(line[:keywordWidth], " ")

	switch {
	case keyword == "HIERARCH":
		name, rest, ok := strings.Cut(line[len(hierarchPrefix):], "=")
		if !ok {
			return Card{Keyword: keyword, Comment: strings.TrimRight(line[keywordWidth:], " ")}, nil
		}
		value, comment, err := parseValue(rest)
		if err != nil {
			return Card{}, err
		}

		return Card{Keyword: strings.TrimSpace(name), Value: value, Comment: comment}, nil
	case keyword == "CONTINUE":
		value, comment, err := parseValue(line[len(continuePrefix):])
		if err != nil {
			return Card{}, err
		}

		return Card{Keyword: keyword, Value: value, Comment: comment}, nil
	case line[keywordWidth:keywordWidth+2] == valueIndicator && !isCommentaryKeyword(keyword):
		value, comment, err := parseValue(line[keywordWidth+2:])
		if err != nil {
			return Card{}, err
		}

		return Card{Keyword: keyword, Value: value, Comment: comment}, nil
	default:
		return Card{Keyword: keyword, Comment: strings.TrimRight(line[keywordWidth:], " ")}, nil
	}
}

// parseValue splits a value field into its value and comment.
func parseValue(field string) (any, string, error) {
	s := strings.TrimLeft(field, " ")

	if strings.HasPrefix(s, "'") {
		var sb strings.Builder
		i := 1
		for {
			if i >= len(s) {
				return nil, "", fmt.Errorf("%w: unterminated string %q", errs.ErrInvalidHeader, field)
			}
			if s[i] == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2

					continue
				}

				break
			}
			sb.WriteByte(s[i])
			i++
		}

		// trailing blanks are not significant
		value := strings.TrimRight(sb.String(), " ")

		return value, parseComment(s[i+1:]), nil
	}

	token, rest, _ := strings.Cut(s, "/")
	token = strings.TrimSpace(token)
	comment := strings.TrimSpace(rest)

	switch {
	case token == "":
		return Undefined, comment, nil
	case token == "T":
		return true, comment, nil
	case token == "F":
		return false, comment, nil
	}

	if v, err := strconv.ParseInt(token, 10, 64); err == nil {
		return v, comment, nil
	}
	if v, err := strconv.ParseUint(token, 10, 64); err == nil {
		return v, comment, nil
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(token, "D", "E"), 64); err == nil {
		return v, comment, nil
	}

	// complex and other exotic values are kept verbatim
	return token, comment, nil
}

func parseComment(rest string) string {
	_, comment, ok := strings.Cut(rest, "/")
	if !ok {
		return ""
	}

	return strings.TrimSpace(comment)
}
