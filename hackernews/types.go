package hackernews

import "fmt"

// ListType selects which ranked list of item IDs to fetch.
type ListType string

const (
	ListTop  ListType = "top"
	ListNew  ListType = "new"
	ListBest ListType = "best"
	ListAsk  ListType = "ask"
	ListShow ListType = "show"
	ListJob  ListType = "job"
)

// listEndpoints maps each list type to its path on the item store.
// Adding a list type is a one-entry change here.
var listEndpoints = map[ListType]string{
	ListTop:  "topstories",
	ListNew:  "newstories",
	ListBest: "beststories",
	ListAsk:  "askstories",
	ListShow: "showstories",
	ListJob:  "jobstories",
}

// ListTypes returns every recognised list type in a stable order.
func ListTypes() []ListType {
	return []ListType{ListTop, ListNew, ListBest, ListAsk, ListShow, ListJob}
}

// ParseListType reports whether s names a recognised list type.
func ParseListType(s string) (ListType, bool) {
	lt := ListType(s)
	_, ok := listEndpoints[lt]
	return lt, ok
}

// ItemType is the discriminant of an Item.
type ItemType string

const (
	ItemStory   ItemType = "story"
	ItemJob     ItemType = "job"
	ItemPoll    ItemType = "poll"
	ItemPollOpt ItemType = "pollopt"
	ItemComment ItemType = "comment"
)

// Item is a story, job, poll, poll option or comment. Type decides which of
// the variant fields are meaningful.
type Item struct {
	ID      int      `json:"id"`
	Type    ItemType `json:"type"`
	By      string   `json:"by,omitempty"`
	Time    int64    `json:"time"`
	Deleted bool     `json:"deleted,omitempty"`
	Dead    bool     `json:"dead,omitempty"`

	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Text        string `json:"text,omitempty"`
	Score       int    `json:"score,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Poll        int    `json:"poll,omitempty"`
	Parts       []int  `json:"parts,omitempty"`
}

// Validate checks the fields each variant must carry. Deleted and dead items
// are accepted with whatever the store still returns for them.
func (it *Item) Validate() error {
	if it.ID <= 0 {
		return fmt.Errorf("%w: item id %d", ErrInvalidItem, it.ID)
	}
	switch it.Type {
	case ItemStory, ItemJob, ItemPoll, ItemPollOpt, ItemComment:
	default:
		return fmt.Errorf("%w: item %d has unknown type %q", ErrInvalidItem, it.ID, it.Type)
	}
	if it.Deleted || it.Dead {
		return nil
	}

	switch it.Type {
	case ItemStory, ItemJob, ItemPoll:
		if it.Title == "" {
			return fmt.Errorf("%w: %s %d has no title", ErrInvalidItem, it.Type, it.ID)
		}
	case ItemComment:
		if it.Parent == 0 {
			return fmt.Errorf("%w: comment %d has no parent", ErrInvalidItem, it.ID)
		}
	case ItemPollOpt:
		if it.Poll == 0 {
			return fmt.Errorf("%w: pollopt %d has no poll", ErrInvalidItem, it.ID)
		}
	}
	return nil
}

// Headline is the title of an item, or its text when it has none.
func (it *Item) Headline() string {
	if it.Title != "" {
		return it.Title
	}
	return it.Text
}

// UserInfo is a public user profile. IDs are case-sensitive.
type UserInfo struct {
	ID        string `json:"id"`
	About     string `json:"about,omitempty"`
	Created   int64  `json:"created"`
	Karma     int    `json:"karma"`
	Submitted []int  `json:"submitted,omitempty"`
}
