package hntools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxr404/hackernews-mcp/hackernews"
	"github.com/gxr404/hackernews-mcp/tools"
)

type stubSource struct {
	items    []hackernews.Item
	markdown string
	err      error

	gotType     string
	gotPage     int
	gotPageSize int
}

func (s *stubSource) ItemList(ctx context.Context, listType string, page, pageSize int) ([]hackernews.Item, error) {
	s.gotType, s.gotPage, s.gotPageSize = listType, page, pageSize
	return s.items, s.err
}

func (s *stubSource) ItemListMarkdown(ctx context.Context, listType string, page, pageSize int) (string, error) {
	s.gotType, s.gotPage, s.gotPageSize = listType, page, pageSize
	return s.markdown, s.err
}

func (s *stubSource) GetItem(ctx context.Context, id int) (*hackernews.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, it := range s.items {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, fmt.Errorf("item %d: %w", id, hackernews.ErrNotFound)
}

func (s *stubSource) GetUser(ctx context.Context, userID string) (*hackernews.UserInfo, error) {
	if userID == "" {
		return nil, hackernews.ErrMissingParameter
	}
	if s.err != nil {
		return nil, s.err
	}
	return &hackernews.UserInfo{ID: userID, Karma: 42}, nil
}

type stubPublisher struct {
	published []string
	err       error
}

func (p *stubPublisher) PublishMarkdown(ctx context.Context, listType string, page, pageSize int, markdown string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, markdown)
	return fmt.Sprintf("hacker-news-list:///%s/%d/%d/gen-%d", listType, page, pageSize, len(p.published)), nil
}

func execute(t *testing.T, tool tools.Tool, args string) (*tools.ToolResult, error) {
	t.Helper()
	return tool.Execute(context.Background(), json.RawMessage(args))
}

func TestNew_ToolSpecs(t *testing.T) {
	ts := New(&stubSource{}, &stubPublisher{}, nil)
	require.Len(t, ts, 4)

	var names []string
	for _, tool := range ts {
		require.NoError(t, tools.Validate(tool))
		names = append(names, tool.Spec().Name)
	}
	assert.Equal(t, []string{ListToolName, ListMDToolName, ItemToolName, UserInfoToolName}, names)

	props := ts[0].Spec().Parameters["properties"].(map[string]interface{})
	typeProp := props["type"].(map[string]interface{})
	assert.Equal(t, []interface{}{"top", "new", "best", "ask", "show", "job"}, typeProp["enum"])

	pageSize := props["pageSize"].(map[string]interface{})
	assert.EqualValues(t, 1, pageSize["minimum"])
	assert.EqualValues(t, 40, pageSize["maximum"])
	assert.EqualValues(t, 30, pageSize["default"])
}

func TestListTool(t *testing.T) {
	src := &stubSource{items: []hackernews.Item{{ID: 1, Type: hackernews.ItemStory, Title: "One"}}}
	tool := NewListTool(src, nil)

	result, err := execute(t, tool, `{"type":"best","page":2,"pageSize":5}`)
	require.NoError(t, err)
	assert.Equal(t, "best", src.gotType)
	assert.Equal(t, 2, src.gotPage)
	assert.Equal(t, 5, src.gotPageSize)

	content, isError := tools.Render(nil, result)
	assert.False(t, isError)
	require.Len(t, content, 1)
	assert.Contains(t, content[0].Text, `"title": "One"`)
}

func TestListTool_Defaults(t *testing.T) {
	src := &stubSource{items: []hackernews.Item{}}
	_, err := execute(t, NewListTool(src, nil), `{"type":"top"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, src.gotPage)
	assert.Equal(t, 30, src.gotPageSize)
}

func TestListTool_InvalidArguments(t *testing.T) {
	tool := NewListTool(&stubSource{}, nil)

	for _, args := range []string{
		`{}`,
		`{"type":"hot"}`,
		`{"type":"top","page":0}`,
		`{"type":"top","pageSize":41}`,
		`{"type":"top","pageSize":0}`,
		`{"type":"top","page":"one"}`,
	} {
		_, err := execute(t, tool, args)
		toolErr, ok := tools.IsProtocolError(err)
		if assert.True(t, ok, args) {
			assert.Equal(t, tools.CodeInvalidParams, toolErr.Code, args)
		}
	}
}

func TestListTool_UpstreamFailure(t *testing.T) {
	src := &stubSource{err: &hackernews.StatusError{StatusCode: 503, URL: "https://example.com/v0/topstories.json"}}

	result, err := execute(t, NewListTool(src, nil), `{"type":"top"}`)
	require.NoError(t, err)

	content, isError := tools.Render(nil, result)
	assert.True(t, isError)
	assert.Equal(t, "failed: unexpected status code 503 from https://example.com/v0/topstories.json", content[0].Text)
}

func TestListMarkdownTool(t *testing.T) {
	md := "# top Stories\n\n- [pg]: [Hi](https://example.com)\n\n"
	src := &stubSource{markdown: md}
	pub := &stubPublisher{}

	result, err := execute(t, NewListMarkdownTool(src, pub, nil), `{"type":"top","page":1,"pageSize":1}`)
	require.NoError(t, err)
	require.Equal(t, []string{md}, pub.published)

	require.Len(t, result.Content, 2)
	assert.Equal(t, "hacker-news-list:///top/1/1/gen-1", result.Content[0].Text)
	require.NotNil(t, result.Content[1].Resource)
	assert.Equal(t, "text/markdown", result.Content[1].Resource.MimeType)
	assert.Equal(t, md, result.Content[1].Resource.Text)
	assert.Equal(t, result.Content[0].Text, result.Content[1].Resource.URI)
}

func TestListMarkdownTool_PublishFailure(t *testing.T) {
	pub := &stubPublisher{err: errors.New("store closed")}

	result, err := execute(t, NewListMarkdownTool(&stubSource{}, pub, nil), `{"type":"top"}`)
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, "failed: store closed", *result.Error)
}

func TestItemTool(t *testing.T) {
	src := &stubSource{items: []hackernews.Item{{ID: 8863, Type: hackernews.ItemStory, By: "dhouston", Title: "My YC app: Dropbox"}}}
	tool := NewItemTool(src, nil)

	result, err := execute(t, tool, `{"id":8863}`)
	require.NoError(t, err)
	item, ok := result.Output.(*hackernews.Item)
	require.True(t, ok)
	assert.Equal(t, "dhouston", item.By)

	result, err = execute(t, tool, `{"id":8863.0}`)
	require.NoError(t, err)
	item, ok = result.Output.(*hackernews.Item)
	require.True(t, ok)
	assert.Equal(t, 8863, item.ID)

	result, err = execute(t, tool, `{"id":1}`)
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, "failed: item 1: not found", *result.Error)

	_, err = execute(t, tool, `{"id":0}`)
	_, ok = tools.IsProtocolError(err)
	assert.True(t, ok)
}

func TestUserInfoTool(t *testing.T) {
	tool := NewUserInfoTool(&stubSource{}, nil)

	result, err := execute(t, tool, `{"userId":"pg"}`)
	require.NoError(t, err)
	user, ok := result.Output.(*hackernews.UserInfo)
	require.True(t, ok)
	assert.Equal(t, "pg", user.ID)

	_, err = execute(t, tool, `{"userId":""}`)
	toolErr, ok := tools.IsProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, tools.CodeInvalidParams, toolErr.Code)
}

// TestTools_AgainstClient drives the tools through a real client and a
// stubbed item store.
func TestTools_AgainstClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v0/jobstories.json":
			fmt.Fprint(w, "[3,2]")
		case strings.HasPrefix(r.URL.Path, "/v0/item/"):
			var id int
			fmt.Sscanf(r.URL.Path, "/v0/item/%d.json", &id)
			fmt.Fprintf(w, `{"id":%d,"type":"job","by":"co%d","title":"Job %d","url":"https://jobs.example/%d","time":1}`, id, id, id, id)
		default:
			fmt.Fprint(w, "null")
		}
	}))
	defer srv.Close()

	client := hackernews.NewClient(hackernews.WithBaseURL(srv.URL + "/v0"))
	pub := &stubPublisher{}
	tool := NewListMarkdownTool(client, pub, nil)

	result, err := execute(t, tool, `{"type":"job","page":1,"pageSize":2}`)
	require.NoError(t, err)
	require.Len(t, result.Content, 2)
	assert.Equal(t,
		"# job Stories\n\n- [co3]: [Job 3](https://jobs.example/3)\n- [co2]: [Job 2](https://jobs.example/2)\n\n",
		result.Content[1].Resource.Text)

	result, err = execute(t, NewUserInfoTool(client, nil), `{"userId":"nobody"}`)
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "not found")
}
