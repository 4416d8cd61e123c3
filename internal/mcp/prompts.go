// ABOUTME: MCP prompt templates for xvault
// ABOUTME: Workflow guides for agents reviewing captured posts and writing about authors

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.registerDailyReviewPrompt()
	s.registerAuthorBriefPrompt()
}

func (s *Server) registerDailyReviewPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "daily-review",
			Description: "Summarize what was captured today and who it came from",
			Arguments:   []mcp.PromptArgument{},
		},
		s.handleDailyReview,
	)
}

func (s *Server) handleDailyReview(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Daily Review

## Overview
Review the posts captured into the vault today and produce a short summary grouped by author.

## Workflow Steps

### Step 1: Check the Totals
**Use xvault://stats resource** to see how many posts and authors the vault holds.

### Step 2: Read Today's Captures
**Use xvault://posts/today resource**, or the recent_posts tool with since "today"
for a different limit.

### Step 3: Group by Author
- Starred authors first (see xvault://authors)
- For anyone unfamiliar, call get_author to read the user's notes on them

### Step 4: Summarize
- One or two lines per author with the main topics
- Quote sparingly; link each post by its url
- Call out threads (several posts from one author within minutes)

## Tips
- search_posts requires every word to match, so search with one or two distinctive words
- Do not star authors or change notes unless the user asks
`

	return &mcp.GetPromptResult{
		Description: "Daily review of captured posts",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}

func (s *Server) registerAuthorBriefPrompt() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "author-brief",
			Description: "Write a brief on one author from their captured posts and the user's notes",
			Arguments: []mcp.PromptArgument{
				{
					Name:        "handle",
					Description: "Author handle to brief on",
					Required:    true,
				},
			},
		},
		s.handleAuthorBrief,
	)
}

func (s *Server) handleAuthorBrief(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	handle := ""
	if req.Params.Arguments != nil {
		handle = req.Params.Arguments["handle"]
	}
	handle, err := requireHandle(handle)
	if err != nil {
		return nil, err
	}

	template := fmt.Sprintf(`# Author Brief: @%[1]s

## Workflow Steps

### Step 1: Profile
Call get_author with handle "%[1]s". Note the display name, captured post count,
whether they are starred, any existing notes, and any blog posts already written.

### Step 2: Posts
Call list_posts with handle "%[1]s", paging with offset until you have the last
50 posts or run out.

### Step 3: Brief
Write a short brief:
- What they mostly post about
- Notable recent posts (with urls)
- How this relates to the user's existing notes

### Step 4: Notes (only if the user agrees)
Offer to save a one-paragraph summary with update_notes. Existing notes are
replaced, so include anything worth keeping.
`, handle)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Brief on @%s", handle),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}
