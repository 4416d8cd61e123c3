// ABOUTME: HTTP handlers for blog posts, export/import, stats, and reindexing
// ABOUTME: Imports are validated in full before anything is written

package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harper/xvault/internal/storage"
	"github.com/harper/xvault/internal/timeutil"
)

type blogBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) listBlogPosts(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	posts, err := s.store.ListBlogPosts(c.UserContext(), handle)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(posts))
}

func (s *Server) createBlogPost(c *fiber.Ctx) error {
	handle, err := handleParam(c)
	if err != nil {
		return err
	}
	var body blogBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	post, err := s.store.CreateBlogPost(c.UserContext(), handle, body.Title, body.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) getBlogPost(c *fiber.Ctx) error {
	post, err := s.store.GetBlogPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if post == nil {
		return fiber.NewError(fiber.StatusNotFound, "blog post not found")
	}
	return c.JSON(post)
}

func (s *Server) updateBlogPost(c *fiber.Ctx) error {
	var body blogBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	post, err := s.store.UpdateBlogPost(c.UserContext(), c.Params("id"), body.Title, body.Content)
	if err != nil {
		return err
	}
	if post == nil {
		return fiber.NewError(fiber.StatusNotFound, "blog post not found")
	}
	return c.JSON(post)
}

func (s *Server) deleteBlogPost(c *fiber.Ctx) error {
	if err := s.store.DeleteBlogPost(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) exportVault(c *fiber.Ctx) error {
	snap, err := s.store.Export(c.UserContext())
	if err != nil {
		return err
	}
	if c.QueryBool("download", false) {
		name := "xvault-export-" + timeutil.StartOfToday().Format("2006-01-02") + ".json"
		c.Attachment(name)
	}
	return c.JSON(snap)
}

// importVault takes a snapshot body. mode=replace clears the vault first;
// the default merge mode skips records that already exist.
func (s *Server) importVault(c *fiber.Ctx) error {
	var merge bool
	switch c.Query("mode", "merge") {
	case "merge":
		merge = true
	case "replace":
	default:
		return fiber.NewError(fiber.StatusBadRequest, "mode must be merge or replace")
	}

	snap, err := storage.ParseSnapshot(c.Body())
	if err != nil {
		return err
	}
	counts, err := s.store.Import(c.UserContext(), snap, merge)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"merge": merge, "imported": counts})
}

func (s *Server) stats(c *fiber.Ctx) error {
	st, err := s.store.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) reindex(c *fiber.Ctx) error {
	n, err := s.store.Reindex(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tokens": n})
}
