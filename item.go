// Package recsys holds the types shared by the recommendation client,
// the renderer and the tracking side channel.
package recsys

// Item is a recommendation as returned by the recommendation API.
// The client forwards it as-is; it does not validate or reshape it.
type Item struct {
	ItemID   int64    `json:"item_id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	Rating   *float64 `json:"rating,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// HasRating reports whether the item carries a rating
func (i Item) HasRating() bool {
	return i.Rating != nil
}

// IDs returns the item IDs of items in order
func IDs(items []Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	return ids
}
