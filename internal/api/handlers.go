// ABOUTME: HTTP handlers for posts, authors, the block list, and settings
// ABOUTME: Thin adapters that decode requests, call the capture service or store, and encode JSON

package api

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/harper/xvault/internal/capture"
	"github.com/harper/xvault/internal/config"
	"github.com/harper/xvault/internal/models"
	"github.com/harper/xvault/internal/timeutil"
)

const maxLimit = 500

type storeResponse struct {
	models.StoreOutcome
	IndexError string `json:"indexError,omitempty"`
}

func newStoreResponse(out models.StoreOutcome) storeResponse {
	r := storeResponse{StoreOutcome: out}
	if out.IndexErr != nil {
		r.IndexError = out.IndexErr.Error()
	}
	return r
}

// handleParam reads and normalizes the :handle route parameter.
func handleParam(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(c.Params("handle"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid handle")
	}
	handle := models.NormalizeHandle(raw)
	if handle == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "handle is required")
	}
	return handle, nil
}

func limitParam(c *fiber.Ctx, def int) (int, error) {
	limit := c.QueryInt("limit", def)
	if limit <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}
	return min(limit, maxLimit), nil
}

func fromHome(c *fiber.Ctx) bool {
	return c.QueryBool("fromHome", false)
}

func (s *Server) storePost(c *fiber.Ctx) error {
	var p models.Post
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid post: "+err.Error())
	}
	out, err := s.capture.Ingest(c.UserContext(), &p, capture.Options{FromHome: fromHome(c)})
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if out.Inserted {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(newStoreResponse(out))
}

func (s *Server) storePosts(c *fiber.Ctx) error {
	var posts []*models.Post
	if err := c.BodyParser(&posts); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid posts: "+err.Error())
	}
	outcomes, err := s.capture.IngestBatch(c.UserContext(), posts, capture.Options{FromHome: fromHome(c)})
	if err != nil {
		return err
	}
	resp := make([]storeResponse, 0, len(outcomes))
	inserted := 0
	for _, out := range outcomes {
		if out.Inserted {
			inserted++
		}
		resp = append(resp, newStoreResponse(out))
	}
	return c.JSON(fiber.Map{"results": resp, "inserted": inserted})
}

func (s *Server) getPost(c *fiber.Ctx) error {
	p, err := s.store.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if p == nil {
		return fiber.NewError(fiber.StatusNotFound, "post not found")
	}
	return c.JSON(p)
}

func (s *Server) deletePost(c *fiber.Ctx) error {
	deleted, remaining, err := s.capture.DeletePost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": deleted, "remaining": remaining})
}

func (s *Server) countPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if handle := models.NormalizeHandle(c.Query("handle")); handle != "" {
		n, err := s.store.CountPostsByAuthor(ctx, handle)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"count": n, "handle": handle})
	}
	n, err := s.store.CountPosts(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": n})
}

func (s *Server) searchPosts(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}
	limit, err := limitParam(c, config.DefaultListLimit)
	if err != nil {
		return err
	}
	posts, err := s.store.SearchPosts(c.UserContext(), query, limit)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(posts))
}

func (s *Server) recentPosts(c *fiber.Ctx) error {
	limit, err := limitParam(c, config.DefaultListLimit)
	if err != nil {
		return err
	}
	since, err := timeutil.ParseSince(c.Query("since"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid since")
	}
	posts, err := s.store.RecentPosts(c.UserContext(), limit, since)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(posts))
}

func (s *Server) listAuthors(c *fiber.Ctx) error {
	authors, err := s.store.ListAuthors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(authors))
}

func (s *Server) getAuthor(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	a, err := s.store.GetAuthor(c.UserContext(), handle)
	if err != nil {
		return err
	}
	if a == nil {
		return fiber.NewError(fiber.StatusNotFound, "author not found")
	}
	return c.JSON(a)
}

func (s *Server) deleteAuthor(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	res, err := s.capture.DeleteAuthor(c.UserContext(), handle)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) listAuthorPosts(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if c.QueryBool("all", false) {
		posts, err := s.store.AllPostsByAuthor(ctx, handle)
		if err != nil {
			return err
		}
		return c.JSON(nonNil(posts))
	}

	limit, err := limitParam(c, config.DefaultListLimit)
	if err != nil {
		return err
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "offset must be non-negative")
	}
	posts, err := s.store.ListPostsByAuthor(ctx, handle, limit, offset)
	if err != nil {
		return err
	}
	total, err := s.store.CountPostsByAuthor(ctx, handle)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"posts":   nonNil(posts),
		"total":   total,
		"hasMore": offset+len(posts) < total,
	})
}

func (s *Server) starAuthor(starred bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		handle, err := handleParam(c)
		if err != nil {
			return err
		}
		a, err := s.store.SetStarred(c.UserContext(), handle, starred)
		if err != nil {
			return err
		}
		if a == nil {
			return fiber.NewError(fiber.StatusNotFound, "author not found")
		}
		return c.JSON(a)
	}
}

func (s *Server) updateNotes(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	a, err := s.store.UpdateNotes(c.UserContext(), handle, body.Notes)
	if err != nil {
		return err
	}
	if a == nil {
		return fiber.NewError(fiber.StatusNotFound, "author not found")
	}
	return c.JSON(a)
}

func (s *Server) listBlocked(c *fiber.Ctx) error {
	list, err := s.store.ListBlocked(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(list))
}

func (s *Server) blockAuthor(c *fiber.Ctx) error {
	var body struct {
		Handle string `json:"handle"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	handle := models.NormalizeHandle(body.Handle)
	if handle == "" {
		return fiber.NewError(fiber.StatusBadRequest, "handle is required")
	}
	res, err := s.capture.Block(c.UserContext(), handle)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"handle": handle, "removed": res})
}

func (s *Server) unblockAuthor(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	if err := s.capture.Unblock(c.UserContext(), handle); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getHomeFeed(c *fiber.Ctx) error {
	hf, err := s.store.HomeFeed(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(hf)
}

func (s *Server) setHomeFeed(c *fiber.Ctx) error {
	var hf models.HomeFeedSettings
	if err := c.BodyParser(&hf); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings: "+err.Error())
	}
	if err := s.store.SetHomeFeed(c.UserContext(), hf); err != nil {
		return err
	}
	return c.JSON(hf)
}

func (s *Server) getCaptureFromHome(c *fiber.Ctx) error {
	enabled, err := s.store.CaptureFromHome(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": enabled})
}

func (s *Server) setCaptureFromHome(c *fiber.Ctx) error {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := s.store.SetCaptureFromHome(c.UserContext(), body.Enabled); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"enabled": body.Enabled})
}

func (s *Server) getAssistant(c *fiber.Ctx) error {
	a, err := s.store.Assistant(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (s *Server) setAssistant(c *fiber.Ctx) error {
	var a models.AssistantSettings
	if err := c.BodyParser(&a); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid settings: "+err.Error())
	}
	if err := s.store.SetAssistant(c.UserContext(), a); err != nil {
		return err
	}
	return c.JSON(a)
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
