package types

import "encoding/json"

// ItemBag is an item-code -> quantity map. Older records stored items as a
// list of entries; decoding normalises both shapes to the map form, and the
// bag is only ever written back as a map.
type ItemBag map[string]int

func (b *ItemBag) UnmarshalJSON(data []byte) error {
	var asMap map[string]int
	if err := json.Unmarshal(data, &asMap); err == nil {
		*b = asMap
		return nil
	}

	// Legacy list shape: entries are either bare item codes or
	// {id|code, quantity} objects.
	var asList []json.RawMessage
	if err := json.Unmarshal(data, &asList); err != nil {
		return err
	}
	out := make(ItemBag, len(asList))
	for _, raw := range asList {
		var code string
		if err := json.Unmarshal(raw, &code); err == nil {
			out[code]++
			continue
		}
		var entry struct {
			ID       string `json:"id"`
			Code     string `json:"code"`
			Quantity int    `json:"quantity"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		code = entry.Code
		if code == "" {
			code = entry.ID
		}
		qty := entry.Quantity
		if qty <= 0 {
			qty = 1
		}
		if code != "" {
			out[code] += qty
		}
	}
	*b = out
	return nil
}

// Clone returns an independent copy; a nil bag clones to an empty one.
func (b ItemBag) Clone() ItemBag {
	out := make(ItemBag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Add merges other into b.
func (b ItemBag) Add(other ItemBag) {
	for k, v := range other {
		b[k] += v
	}
}

// Covers reports whether b holds at least cost of every item.
func (b ItemBag) Covers(cost map[string]int) bool {
	for k, v := range cost {
		if b[k] < v {
			return false
		}
	}
	return true
}

// Deduct removes cost from b, dropping zeroed entries. Caller checks Covers
// first; Deduct never drives a quantity negative.
func (b ItemBag) Deduct(cost map[string]int) {
	for k, v := range cost {
		n := b[k] - v
		if n > 0 {
			b[k] = n
		} else {
			delete(b, k)
		}
	}
}

func (b ItemBag) Total() int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}
