// ABOUTME: Route table for the local API
// ABOUTME: One route per vault operation, grouped by posts, authors, block list, settings, blog, and transfer

package api

import "github.com/gofiber/fiber/v2"

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")

	posts := api.Group("/posts")
	posts.Post("/", s.storePost)
	posts.Post("/batch", s.storePosts)
	posts.Get("/count", s.countPosts)
	posts.Get("/:id", s.getPost)
	posts.Delete("/:id", s.deletePost)

	api.Get("/search", s.searchPosts)
	api.Get("/recent", s.recentPosts)

	authors := api.Group("/authors")
	authors.Get("/", s.listAuthors)
	authors.Get("/:handle", s.getAuthor)
	authors.Delete("/:handle", s.deleteAuthor)
	authors.Get("/:handle/posts", s.listAuthorPosts)
	authors.Put("/:handle/star", s.starAuthor(true))
	authors.Delete("/:handle/star", s.starAuthor(false))
	authors.Put("/:handle/notes", s.updateNotes)
	authors.Get("/:handle/blog", s.listBlogPosts)
	authors.Post("/:handle/blog", s.createBlogPost)

	blocked := api.Group("/blocked")
	blocked.Get("/", s.listBlocked)
	blocked.Post("/", s.blockAuthor)
	blocked.Delete("/:handle", s.unblockAuthor)

	settings := api.Group("/settings")
	settings.Get("/home-feed", s.getHomeFeed)
	settings.Put("/home-feed", s.setHomeFeed)
	settings.Get("/capture-from-home", s.getCaptureFromHome)
	settings.Put("/capture-from-home", s.setCaptureFromHome)
	settings.Get("/assistant", s.getAssistant)
	settings.Put("/assistant", s.setAssistant)

	blog := api.Group("/blog")
	blog.Get("/:id", s.getBlogPost)
	blog.Put("/:id", s.updateBlogPost)
	blog.Delete("/:id", s.deleteBlogPost)

	api.Get("/export", s.exportVault)
	api.Post("/import", s.importVault)
	api.Get("/stats", s.stats)
	api.Post("/reindex", s.reindex)
}
