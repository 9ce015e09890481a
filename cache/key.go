package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which recommendation query a Key belongs to
type Kind uint8

const (
	// KindUser is a per-user recommendation query
	KindUser Kind = iota + 1
	// KindSimilar is an item-similarity query
	KindSimilar
	// KindPopular is a popular-items query
	KindPopular
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindSimilar:
		return "similar"
	case KindPopular:
		return "popular"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AllCategories is the category recorded for popular queries without a category filter
const AllCategories = "all"

// Key identifies a unique query shape. It is comparable and is used directly
// as a map key; only the fields relevant to Kind are set.
type Key struct {
	Kind     Kind
	ID       int64
	Count    int
	Exclude  string
	Category string
}

// UserKey builds the key for a per-user query. The excluded IDs are joined in
// the order given: [5,6] and [6,5] are different keys.
func UserKey(userID int64, count int, exclude []int64) Key {
	return Key{
		Kind:    KindUser,
		ID:      userID,
		Count:   count,
		Exclude: JoinIDs(exclude),
	}
}

// SimilarKey builds the key for an item-similarity query
func SimilarKey(itemID int64, count int) Key {
	return Key{
		Kind:  KindSimilar,
		ID:    itemID,
		Count: count,
	}
}

// PopularKey builds the key for a popular-items query. An empty category and
// an explicit "all" produce the same key.
func PopularKey(count int, category string) Key {
	if category == "" {
		category = AllCategories
	}
	return Key{
		Kind:     KindPopular,
		Count:    count,
		Category: category,
	}
}

// String returns the textual encoding of the key
func (k Key) String() string {
	switch k.Kind {
	case KindUser:
		return fmt.Sprintf("user:%d:n:%d:exclude:%s", k.ID, k.Count, k.Exclude)
	case KindSimilar:
		return fmt.Sprintf("similar:%d:n:%d", k.ID, k.Count)
	case KindPopular:
		return fmt.Sprintf("popular:n:%d:cat:%s", k.Count, k.Category)
	default:
		return k.Kind.String()
	}
}

// JoinIDs joins ids with commas, in the order given
func JoinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
