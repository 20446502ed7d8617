package fits

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/fitsimg/errs"
	"github.com/arloliu/fitsimg/internal/collision"
	"github.com/arloliu/fitsimg/internal/hash"
)

// Header is an ordered list of cards with a keyword index.
//
// Value keywords are unique: setting an existing keyword replaces its card
// in place. Commentary cards may repeat and are not indexed.
type Header struct {
	cards []Card
	index *collision.Tracker
}

// NewHeader creates an empty header.
func NewHeader() *Header {
	return &Header{index: collision.NewTracker()}
}

// Set validates and stores a keyword. An existing value keyword keeps its
// position and gets the new value and comment.
func (h *Header) Set(keyword string, value any, comment string) error {
	card, err := NewCard(keyword, value, comment)
	if err != nil {
		return err
	}

	h.put(card)

	return nil
}

// Add appends a commentary card (COMMENT, HISTORY or blank keyword).
func (h *Header) Add(keyword, text string) error {
	card, err := NewCard(keyword, text, "")
	if err != nil {
		return err
	}
	if !card.IsCommentary() {
		return fmt.Errorf("%w: %s is not a commentary keyword", errs.ErrInvalidKeyword, card.Keyword)
	}

	h.cards = append(h.cards, card)

	return nil
}

func (h *Header) put(card Card) {
	if card.IsCommentary() {
		h.cards = append(h.cards, card)
		return
	}

	if pos, ok := h.find(card.Keyword); ok {
		h.cards[pos] = card
		return
	}

	// Track only fails on duplicates, which find has ruled out.
	_ = h.index.Track(card.Keyword, hash.KeywordID(card.Keyword), len(h.cards))
	h.cards = append(h.cards, card)
}

// appendParsed adds a card read from a file. Repeated value keywords are
// kept but lookups return the first one.
func (h *Header) appendParsed(card Card) {
	if !card.IsCommentary() {
		err := h.index.Track(card.Keyword, hash.KeywordID(card.Keyword), len(h.cards))
		if err != nil && !errors.Is(err, errs.ErrDuplicateKeyword) {
			return
		}
	}

	h.cards = append(h.cards, card)
}

func (h *Header) find(keyword string) (int, bool) {
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	if pos, ok := h.index.Lookup(keyword, hash.KeywordID(keyword)); ok {
		return pos, true
	}
	if !h.index.HasCollision() {
		return 0, false
	}

	for i, c := range h.cards {
		if c.Keyword == keyword && !c.IsCommentary() {
			return i, true
		}
	}

	return 0, false
}

// Get returns the card of keyword.
func (h *Header) Get(keyword string) (Card, bool) {
	pos, ok := h.find(keyword)
	if !ok {
		return Card{}, false
	}

	return h.cards[pos], true
}

// Has reports whether keyword is present.
func (h *Header) Has(keyword string) bool {
	_, ok := h.find(keyword)
	return ok
}

// Value returns the value of keyword.
func (h *Header) Value(keyword string) (any, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return nil, false
	}

	return c.Value, true
}

// Int returns the integer value of keyword.
func (h *Header) Int(keyword string) (int64, bool) {
	v, _ := h.Value(keyword)
	i, ok := v.(int64)

	return i, ok
}

// Float returns the numeric value of keyword, converting integers.
func (h *Header) Float(keyword string) (float64, bool) {
	v, _ := h.Value(keyword)
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// String returns the string value of keyword.
func (h *Header) String(keyword string) (string, bool) {
	v, _ := h.Value(keyword)
	s, ok := v.(string)

	return s, ok
}

// Bool returns the logical value of keyword.
func (h *Header) Bool(keyword string) (bool, bool) {
	v, _ := h.Value(keyword)
	b, ok := v.(bool)

	return b, ok
}

// Cards returns a copy of the cards in order.
func (h *Header) Cards() []Card {
	return append([]Card(nil), h.cards...)
}

// Keywords returns the indexed value keywords in insertion order.
func (h *Header) Keywords() []string {
	return append([]string(nil), h.index.Keywords()...)
}

// Len returns the number of cards.
func (h *Header) Len() int {
	return len(h.cards)
}

// merge appends all cards of other, replacing existing value keywords.
func (h *Header) merge(other *Header) {
	if other == nil {
		return
	}

	for _, c := range other.cards {
		h.put(c)
	}
}

// AppendTo appends the encoded header, the END card and blank padding to a
// multiple of BlockSize.
func (h *Header) AppendTo(dst []byte) ([]byte, error) {
	start := len(dst)

	var err error
	for _, c := range h.cards {
		dst, err = c.AppendTo(dst)
		if err != nil {
			return dst[:start], err
		}
	}

	dst = appendRecord(dst, "END")
	for (len(dst)-start)%BlockSize != 0 {
		dst = append(dst, ' ')
	}

	return dst, nil
}

// Bytes returns the encoded header.
func (h *Header) Bytes() ([]byte, error) {
	return h.AppendTo(nil)
}

// ReadHeader reads header blocks from r up to and including the block that
// holds the END card. CONTINUE cards are folded into the preceding string.
//
// Returns io.EOF when r is exhausted before the first byte.
func ReadHeader(r io.Reader) (*Header, error) {
	h := NewHeader()
	block := make([]byte, BlockSize)

	var last *Card
	for first := true; ; first = false {
		if _, err := io.ReadFull(r, block); err != nil {
			if first && errors.Is(err, io.EOF) {
				return nil, io.EOF
			}

			return nil, fmt.Errorf("%w: header block: %v", errs.ErrTruncated, err) //nolint: errorlint
		}

		for off := 0; off < BlockSize; off += CardSize {
			rec := block[off : off+CardSize]
			if strings.TrimRight(string(rec[:keywordWidth]), " ") == "END" {
				return h, nil
			}

			card, err := parseCard(rec)
			if err != nil {
				return nil, err
			}

			if card.Keyword == "CONTINUE" && last != nil {
				if appendContinue(last, card) {
					continue
				}
			}

			h.appendParsed(card)
			last = &h.cards[len(h.cards)-1]
		}
	}
}

// appendContinue folds a CONTINUE card into the previous long string card.
func appendContinue(prev *Card, cont Card) bool {
	s, ok := prev.Value.(string)
	part, partOK := cont.Value.(string)
	if !ok || !partOK || !strings.HasSuffix(s, "&") {
		return false
	}

	prev.Value = s[:len(s)-1] + part
	if cont.Comment != "" {
		prev.Comment = cont.Comment
	}

	return true
}
