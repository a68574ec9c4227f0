package hackernews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	items := []Item{
		{ID: 1, Type: ItemStory, By: "pg", Title: "Launch HN", URL: "https://a.example", Text: "ignored"},
		{ID: 2, Type: ItemComment, By: "dang", Text: "a *comment*", Parent: 1},
		{ID: 3, Type: ItemJob, By: "yc", Title: "Hiring"},
	}

	want := "# top Stories\n\n" +
		"- [pg]: [Launch HN](https://a.example)\n" +
		"- [dang]: [a *comment*]()\n" +
		"- [yc]: [Hiring]()\n\n"

	got := Markdown(ListTop, items)
	assert.Equal(t, want, got)
	assert.Equal(t, got, Markdown(ListTop, items))
}

func TestMarkdown_Empty(t *testing.T) {
	assert.Equal(t, "# best Stories\n\n\n\n", Markdown(ListBest, nil))
}
