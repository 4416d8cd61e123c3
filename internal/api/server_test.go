// ABOUTME: Tests for the local HTTP API using fiber's in-process test client
// ABOUTME: Exercises capture, queries, curation, the block list, settings, blog posts, and transfer

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(capture.New(store, nil), Options{AllowedOrigins: "chrome-extension://xvault"}), store
}

func do(t *testing.T, s *Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func postBody(id, handle, text string) map[string]any {
	return map[string]any{
		"postId":            id,
		"authorHandle":      handle,
		"authorDisplayName": "Name " + handle,
		"fullText":          text,
		"timestamp":         "2024-01-0" + id + "T00:00:00Z",
	}
}

func TestStorePost(t *testing.T) {
	s, _ := newTestServer(t)

	resp, data := do(t, s, http.MethodPost, "/api/posts", postBody("1", "@alice", "hello vault"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"inserted": true}`, string(data))

	resp, data = do(t, s, http.MethodPost, "/api/posts", postBody("1", "alice", "hello vault"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"inserted": false}`, string(data))

	resp, data = do(t, s, http.MethodPost, "/api/posts", map[string]any{"fullText": "no id"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "error")

	resp, _ = do(t, s, http.MethodPost, "/api/posts?fromHome=true", postBody("2", "bob", "from home"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data = do(t, s, http.MethodGet, "/api/posts/count", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"count": 1}`, string(data), "home capture is off by default")
}

func TestStorePostsBatch(t *testing.T) {
	s, _ := newTestServer(t)

	batch := []map[string]any{postBody("1", "alice", "one"), postBody("2", "alice", "two"), postBody("1", "alice", "one")}
	resp, data := do(t, s, http.MethodPost, "/api/posts/batch", batch)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Inserted int                   `json:"inserted"`
		Results  []models.StoreOutcome `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.Inserted)
	assert.Len(t, out.Results, 3)
}

func TestQueries(t *testing.T) {
	s, _ := newTestServer(t)
	for _, p := range []map[string]any{
		postBody("1", "alice", "sqlite notes"),
		postBody("2", "alice", "more sqlite"),
		postBody("3", "bob", "unrelated"),
	} {
		resp, _ := do(t, s, http.MethodPost, "/api/posts", p)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, data := do(t, s, http.MethodGet, "/api/search?q=sqlite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found []models.Post
	require.NoError(t, json.Unmarshal(data, &found))
	require.Len(t, found, 2)
	assert.Equal(t, "2", found[0].PostID)

	resp, _ = do(t, s, http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, s, http.MethodGet, "/api/authors/alice/posts?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Posts   []models.Post `json:"posts"`
		Total   int           `json:"total"`
		HasMore bool          `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2", page.Posts[0].PostID)

	resp, data = do(t, s, http.MethodGet, "/api/authors/alice/posts?all=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Post
	require.NoError(t, json.Unmarshal(data, &all))
	assert.Len(t, all, 2)

	resp, data = do(t, s, http.MethodGet, "/api/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recent []models.Post
	require.NoError(t, json.Unmarshal(data, &recent))
	assert.Len(t, recent, 2)

	resp, _ = do(t, s, http.MethodGet, "/api/recent?since=sometime", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s, http.MethodGet, "/api/posts/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = do(t, s, http.MethodDelete, "/api/posts/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"deleted": true, "remaining": 2}`, string(data))
}

func TestAuthorCuration(t *testing.T) {
	s, store := newTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/api/posts", postBody("1", "alice", "hello"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, s, http.MethodPost, "/api/posts", postBody("2", "bob", "hello"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPut, "/api/authors/bob/star", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := do(t, s, http.MethodGet, "/api/authors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var authors []models.Author
	require.NoError(t, json.Unmarshal(data, &authors))
	require.Len(t, authors, 2)
	assert.Equal(t, "bob", authors[0].Handle)

	resp, _ = do(t, s, http.MethodPut, "/api/authors/%40Alice/notes", map[string]string{"notes": "met at a conf"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	alice, err := store.GetAuthor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "met at a conf", alice.Notes)

	resp, _ = do(t, s, http.MethodPut, "/api/authors/ghost/star", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, s, http.MethodGet, "/api/authors/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, data = do(t, s, http.MethodDelete, "/api/authors/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"author": true, "posts": 1, "blogPosts": 0}`, string(data))
}

func TestBlockList(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/api/posts", postBody("1", "spammer", "buy"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := do(t, s, http.MethodPost, "/api/blocked", map[string]string{"handle": "@spammer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"posts":1`)

	resp, data = do(t, s, http.MethodPost, "/api/posts", postBody("2", "spammer", "buy again"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"inserted": false, "blocked": true}`, string(data))

	resp, data = do(t, s, http.MethodGet, "/api/blocked", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"spammer"`)

	resp, _ = do(t, s, http.MethodDelete, "/api/blocked/spammer", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = do(t, s, http.MethodGet, "/api/blocked", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))
}

func TestSettings(t *testing.T) {
	s, _ := newTestServer(t)

	resp, data := do(t, s, http.MethodPut, "/api/settings/home-feed", map[string]any{"enabled": true, "minLikes": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = do(t, s, http.MethodGet, "/api/settings/capture-from-home", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"enabled": true}`, string(data))

	resp, _ = do(t, s, http.MethodPut, "/api/settings/home-feed", map[string]any{"minLikes": -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPut, "/api/settings/assistant", map[string]any{"enabled": true, "provider": "local"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, data = do(t, s, http.MethodGet, "/api/settings/assistant", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"provider":"local"`)
}

func TestBlogPosts(t *testing.T) {
	s, _ := newTestServer(t)

	resp, data := do(t, s, http.MethodPost, "/api/authors/alice/blog", map[string]string{"title": "On Alice", "content": "# notes"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var post models.BlogPost
	require.NoError(t, json.Unmarshal(data, &post))

	resp, data = do(t, s, http.MethodPut, "/api/blog/"+post.PostID, map[string]string{"title": "Renamed", "content": "body"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "Renamed")

	resp, data = do(t, s, http.MethodGet, "/api/authors/alice/blog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), post.PostID)

	resp, _ = do(t, s, http.MethodDelete, "/api/blog/"+post.PostID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, s, http.MethodGet, "/api/blog/"+post.PostID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportImport(t *testing.T) {
	src, _ := newTestServer(t)
	resp, _ := do(t, src, http.MethodPost, "/api/posts", postBody("1", "alice", "exported post"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, snapshot := do(t, src, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dst, _ := newTestServer(t)
	resp, data := do(t, dst, http.MethodPost, "/api/import?mode=replace", string(snapshot))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, string(data), `"tweets":1`)

	resp, data = do(t, dst, http.MethodGet, "/api/search?q=exported", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"postId":"1"`)

	resp, _ = do(t, dst, http.MethodPost, "/api/import", `{"tweets": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, dst, http.MethodPost, "/api/import?mode=overwrite", string(snapshot))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, dst, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"posts":1`)
}

func TestReindexReportsTokens(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/api/posts", postBody("1", "alice", "hello vault"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// "hello vault" plus "alice" and "Name alice" index as hello, vault, alice, name.
	resp, data := do(t, s, http.MethodPost, "/api/reindex", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"tokens": 4}`, string(data))
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "chrome-extension://xvault")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "chrome-extension://xvault", resp.Header.Get("Access-Control-Allow-Origin"))
}
