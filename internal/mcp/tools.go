// ABOUTME: MCP tool definitions and handlers for posts and authors in the vault
// ABOUTME: Read-only queries plus the two author annotations agents may change: star and notes

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
	"github.com/mark3labs/mcp-go/mcp"
)

// Type definitions for input/output structures

type ListAuthorsInput struct {
	StarredOnly *bool `json:"starred_only,omitempty"`
	Limit       *int  `json:"limit,omitempty"`
}

type ListAuthorsOutput struct {
	Authors []*models.Author `json:"authors"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
}

type HandleInput struct {
	Handle string `json:"handle"`
}

type GetAuthorOutput struct {
	Author    *models.Author     `json:"author"`
	Posts     int                `json:"posts"`
	BlogPosts []*models.BlogPost `json:"blog_posts"`
}

type ListPostsInput struct {
	Handle string `json:"handle"`
	Limit  *int   `json:"limit,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

type PostsOutput struct {
	Posts   []*models.Post `json:"posts"`
	Count   int            `json:"count"`
	Filters map[string]any `json:"filters"`
}

type SearchPostsInput struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type RecentPostsInput struct {
	Since *string `json:"since,omitempty"`
	Limit *int    `json:"limit,omitempty"`
}

type CountPostsInput struct {
	Handle *string `json:"handle,omitempty"`
}

type CountPostsOutput struct {
	Count  int    `json:"count"`
	Handle string `json:"handle,omitempty"`
}

type StarAuthorInput struct {
	Handle  string `json:"handle"`
	Starred *bool  `json:"starred,omitempty"`
}

type UpdateNotesInput struct {
	Handle string `json:"handle"`
	Notes  string `json:"notes"`
}

type AuthorUpdateOutput struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Author  *models.Author `json:"author,omitempty"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListAuthorsTool()
	s.registerGetAuthorTool()
	s.registerListPostsTool()
	s.registerSearchPostsTool()
	s.registerRecentPostsTool()
	s.registerCountPostsTool()
	s.registerStarAuthorTool()
	s.registerUpdateNotesTool()
	s.registerListBlogPostsTool()
}

func handleProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

func limitProperty(def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": fmt.Sprintf("Maximum number of results (default: %d)", def),
		"minimum":     1,
	}
}

func (s *Server) registerListAuthorsTool() {
	tool := mcp.Tool{
		Name:        "list_authors",
		Description: "List every author with captured posts. Starred authors come first, then by number of captured posts (most first), then by handle. Use starred_only to see only the accounts the user marked as important.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"starred_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only return starred authors",
				},
				"limit": limitProperty(100),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListAuthors)
}

func (s *Server) registerGetAuthorTool() {
	tool := mcp.Tool{
		Name:        "get_author",
		Description: "Get one author's profile: display name, avatar, last seen time, captured post count, star flag, and the user's private notes. Also returns the author's blog posts.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Author handle, with or without @. Example: 'jack'"),
			},
			Required: []string{"handle"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGetAuthor)
}

func (s *Server) registerListPostsTool() {
	tool := mcp.Tool{
		Name:        "list_posts",
		Description: "List captured posts by one author, newest first by post timestamp. Use offset to page through long histories.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Author handle, with or without @"),
				"limit":  limitProperty(config.DefaultListLimit),
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of posts to skip (default: 0)",
					"minimum":     0,
				},
			},
			Required: []string{"handle"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListPosts)
}

func (s *Server) registerSearchPostsTool() {
	tool := mcp.Tool{
		Name:        "search_posts",
		Description: "Full-text search over captured posts. Every word in the query must appear in the post text, author handle, or display name. Results are newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search words. Example: 'sqlite wal'",
				},
				"limit": limitProperty(config.DefaultListLimit),
			},
			Required: []string{"query"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleSearchPosts)
}

func (s *Server) registerRecentPostsTool() {
	tool := mcp.Tool{
		Name:        "recent_posts",
		Description: "Most recently captured posts across all authors, newest capture first. Optionally only those captured since a period (today, yesterday, week, month), a duration like 36h, or a date.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Lower bound on capture time: today, yesterday, week, month, a duration (36h), or YYYY-MM-DD",
				},
				"limit": limitProperty(config.DefaultListLimit),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRecentPosts)
}

func (s *Server) registerCountPostsTool() {
	tool := mcp.Tool{
		Name:        "count_posts",
		Description: "Count captured posts, either in total or for one author.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Optional author handle"),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleCountPosts)
}

func (s *Server) registerStarAuthorTool() {
	tool := mcp.Tool{
		Name:        "star_author",
		Description: "Star or unstar an author. Starred authors sort first in every author list.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Author handle, with or without @"),
				"starred": map[string]interface{}{
					"type":        "boolean",
					"description": "true to star, false to unstar (default: true)",
				},
			},
			Required: []string{"handle"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleStarAuthor)
}

func (s *Server) registerUpdateNotesTool() {
	tool := mcp.Tool{
		Name:        "update_notes",
		Description: "Replace the private notes kept on an author. Pass an empty string to clear them.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Author handle, with or without @"),
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "New notes text",
				},
			},
			Required: []string{"handle", "notes"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleUpdateNotes)
}

func (s *Server) registerListBlogPostsTool() {
	tool := mcp.Tool{
		Name:        "list_blog_posts",
		Description: "List the markdown blog posts the user wrote about an author, newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"handle": handleProperty("Author handle, with or without @"),
			},
			Required: []string{"handle"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListBlogPosts)
}

// Handlers

func (s *Server) handleListAuthors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListAuthorsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	limit, err := limitOrDefault(input.Limit, 100)
	if err != nil {
		return nil, err
	}

	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	total := len(authors)

	out := make([]*models.Author, 0, min(limit, total))
	for _, a := range authors {
		if input.StarredOnly != nil && *input.StarredOnly && !a.Starred {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, a)
	}

	return jsonResult(ListAuthorsOutput{Authors: out, Count: len(out), Total: total})
}

func (s *Server) handleGetAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input HandleInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	handle, err := requireHandle(input.Handle)
	if err != nil {
		return nil, err
	}

	author, err := s.store.GetAuthor(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}
	if author == nil {
		return nil, fmt.Errorf("author not found: %s", handle)
	}
	posts, err := s.store.CountPostsByAuthor(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	blogs, err := s.store.ListBlogPosts(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}

	return jsonResult(GetAuthorOutput{Author: author, Posts: posts, BlogPosts: nonNil(blogs)})
}

func (s *Server) handleListPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListPostsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	handle, err := requireHandle(input.Handle)
	if err != nil {
		return nil, err
	}
	limit, err := limitOrDefault(input.Limit, config.DefaultListLimit)
	if err != nil {
		return nil, err
	}
	offset := 0
	if input.Offset != nil {
		if *input.Offset < 0 {
			return nil, fmt.Errorf("offset must be non-negative, got %d", *input.Offset)
		}
		offset = *input.Offset
	}

	posts, err := s.store.ListPostsByAuthor(ctx, handle, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return jsonResult(PostsOutput{
		Posts:   nonNil(posts),
		Count:   len(posts),
		Filters: map[string]any{"handle": handle, "limit": limit, "offset": offset},
	})
}

func (s *Server) handleSearchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SearchPostsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	limit, err := limitOrDefault(input.Limit, config.DefaultListLimit)
	if err != nil {
		return nil, err
	}

	posts, err := s.store.SearchPosts(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}

	return jsonResult(PostsOutput{
		Posts:   nonNil(posts),
		Count:   len(posts),
		Filters: map[string]any{"query": query, "limit": limit},
	})
}

func (s *Server) handleRecentPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RecentPostsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	limit, err := limitOrDefault(input.Limit, config.DefaultListLimit)
	if err != nil {
		return nil, err
	}
	filters := map[string]any{"limit": limit}

	since := ""
	if input.Since != nil {
		since, err = timeutil.ParseSince(*input.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid since value: use today, yesterday, week, month, a duration, or YYYY-MM-DD")
		}
		filters["since"] = since
	}

	posts, err := s.store.RecentPosts(ctx, limit, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent posts: %w", err)
	}

	return jsonResult(PostsOutput{Posts: nonNil(posts), Count: len(posts), Filters: filters})
}

func (s *Server) handleCountPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CountPostsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	var out CountPostsOutput
	var err error
	if input.Handle != nil && models.NormalizeHandle(*input.Handle) != "" {
		out.Handle = models.NormalizeHandle(*input.Handle)
		out.Count, err = s.store.CountPostsByAuthor(ctx, out.Handle)
	} else {
		out.Count, err = s.store.CountPosts(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	return jsonResult(out)
}

func (s *Server) handleStarAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input StarAuthorInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	handle, err := requireHandle(input.Handle)
	if err != nil {
		return nil, err
	}
	starred := true
	if input.Starred != nil {
		starred = *input.Starred
	}

	author, err := s.store.SetStarred(ctx, handle, starred)
	if err != nil {
		return nil, fmt.Errorf("failed to update author: %w", err)
	}
	if author == nil {
		return jsonResult(AuthorUpdateOutput{Message: fmt.Sprintf("No author @%s in the vault", handle)})
	}

	verb := "Starred"
	if !starred {
		verb = "Unstarred"
	}
	return jsonResult(AuthorUpdateOutput{Success: true, Message: fmt.Sprintf("%s @%s", verb, handle), Author: author})
}

func (s *Server) handleUpdateNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input UpdateNotesInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	handle, err := requireHandle(input.Handle)
	if err != nil {
		return nil, err
	}

	author, err := s.store.UpdateNotes(ctx, handle, input.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to update notes: %w", err)
	}
	if author == nil {
		return jsonResult(AuthorUpdateOutput{Message: fmt.Sprintf("No author @%s in the vault", handle)})
	}
	return jsonResult(AuthorUpdateOutput{Success: true, Message: fmt.Sprintf("Updated notes for @%s", handle), Author: author})
}

func (s *Server) handleListBlogPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input HandleInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	handle, err := requireHandle(input.Handle)
	if err != nil {
		return nil, err
	}

	posts, err := s.store.ListBlogPosts(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	return jsonResult(map[string]any{"blog_posts": nonNil(posts), "count": len(posts)})
}

// Helpers

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func requireHandle(raw string) (string, error) {
	handle := models.NormalizeHandle(raw)
	if handle == "" {
		return "", fmt.Errorf("handle is required")
	}
	return handle, nil
}

func limitOrDefault(limit *int, def int) (int, error) {
	if limit == nil {
		return def, nil
	}
	if *limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", *limit)
	}
	return *limit, nil
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
