// ABOUTME: MCP resource providers for xvault
// ABOUTME: Exposes read-only views of authors, recent captures, and vault statistics

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/timeutil"
	"github.com/mark3labs/mcp-go/mcp"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time      `json:"timestamp"`
	Count       int            `json:"count"`
	ResourceURI string         `json:"resource_uri"`
	Filters     map[string]any `json:"filters,omitempty"`
}

const (
	authorsURI     = "xvault://authors"
	recentTodayURI = "xvault://posts/today"
	statsURI       = "xvault://stats"
)

var resourceLinks = map[string]string{
	"authors":     authorsURI,
	"posts_today": recentTodayURI,
	"stats":       statsURI,
}

func (s *Server) registerResources() {
	s.registerAuthorsResource()
	s.registerPostsTodayResource()
	s.registerStatsResource()
}

func (s *Server) registerAuthorsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         authorsURI,
			Name:        "All Authors",
			Description: "Every captured author, starred first, then by captured post count",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			authors, err := s.store.ListAuthors(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list authors: %w", err)
			}
			return resourceContents(request.Params.URI, ResourceData{
				Metadata: ResourceMetadata{
					Timestamp:   time.Now(),
					Count:       len(authors),
					ResourceURI: authorsURI,
				},
				Data:  nonNil(authors),
				Links: resourceLinks,
			})
		},
	)
}

func (s *Server) registerPostsTodayResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         recentTodayURI,
			Name:        "Captured Today",
			Description: "Posts captured since the start of today, newest capture first",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			since := timeutil.Format(timeutil.StartOfToday())
			posts, err := s.store.RecentPosts(ctx, config.DefaultListLimit*5, since)
			if err != nil {
				return nil, fmt.Errorf("failed to list today's posts: %w", err)
			}
			return resourceContents(request.Params.URI, ResourceData{
				Metadata: ResourceMetadata{
					Timestamp:   time.Now(),
					Count:       len(posts),
					ResourceURI: recentTodayURI,
					Filters:     map[string]any{"since": since},
				},
				Data:  nonNil(posts),
				Links: resourceLinks,
			})
		},
	)
}

func (s *Server) registerStatsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         statsURI,
			Name:        "Vault Statistics",
			Description: "Totals for posts, authors, starred and blocked authors, blog posts, and search tokens, plus the schema version",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			stats, err := s.store.Stats(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read stats: %w", err)
			}
			return resourceContents(request.Params.URI, ResourceData{
				Metadata: ResourceMetadata{
					Timestamp:   time.Now(),
					Count:       1,
					ResourceURI: statsURI,
				},
				Data:  stats,
				Links: resourceLinks,
			})
		},
	)
}

func resourceContents(uri string, data ResourceData) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
