package shopper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/products"
)

// Session is the persisted result of one orchestration pass. Query is the
// unique persistence key: a later session with the same query overwrites the
// stored record in place, keeping its id.
type Session struct {
	SessionID       string             `json:"session_id"`
	Query           string             `json:"query"`
	Products        []products.Product `json:"products"`
	ProductsByItem  ByItem             `json:"products_by_item"`
	AIReply         string             `json:"ai_reply"`
	EvaluationScore eval.Score         `json:"evaluation_score"`
	ID              int                `json:"id,omitempty"`
}

// Entry is one element of a per-item product list: either a product or an
// `{"error": ...}` placeholder left by a failed fetch.
type Entry struct {
	Product *products.Product
	Error   string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Error != "" {
		return json.Marshal(map[string]string{"error": e.Error})
	}
	return json.Marshal(e.Product)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["error"]; ok && len(probe) == 1 {
		return json.Unmarshal(raw, &e.Error)
	}
	var p products.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	e.Product = &p
	return nil
}

// ItemResult pairs an item term with its filtered product entries.
type ItemResult struct {
	Item    string
	Entries []Entry
}

// ByItem maps item terms to their product entries while keeping item-term
// order. It marshals to a JSON object whose key order is the decomposition
// order, and round-trips through the store without losing that order.
type ByItem []ItemResult

func (b ByItem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ir := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ir.Item)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entries := ir.Entries
		if entries == nil {
			entries = []Entry{}
		}
		val, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *ByItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("products_by_item: expected object, got %v", tok)
	}
	out := ByItem{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("products_by_item: expected string key, got %v", keyTok)
		}
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return err
		}
		out = append(out, ItemResult{Item: key, Entries: entries})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// Get returns the entries recorded for an item term.
func (b ByItem) Get(item string) ([]Entry, bool) {
	for _, ir := range b {
		if ir.Item == item {
			return ir.Entries, true
		}
	}
	return nil, false
}

// Items returns the item terms in decomposition order.
func (b ByItem) Items() []string {
	items := make([]string, len(b))
	for i, ir := range b {
		items[i] = ir.Item
	}
	return items
}
