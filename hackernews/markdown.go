package hackernews

import "strings"

// Markdown renders a resolved page as a heading followed by one bullet per
// item: "- [by]: [headline](url)". Nothing is escaped.
func Markdown(lt ListType, items []Item) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(string(lt))
	b.WriteString(" Stories\n\n")

	for i := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		it := &items[i]
		b.WriteString("- [")
		b.WriteString(it.By)
		b.WriteString("]: [")
		b.WriteString(it.Headline())
		b.WriteString("](")
		b.WriteString(it.URL)
		b.WriteString(")")
	}

	b.WriteString("\n\n")
	return b.String()
}
