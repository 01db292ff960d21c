package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"

	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// document is one whole-collection JSON array exposed by the collaborator.
type document struct {
	name      string
	key       string
	readPath  string
	storePath string
}

var documents = []document{
	{name: "accounts", key: "accounts.json", readPath: remote.PathAccountsRead, storePath: remote.PathAccountsStore},
	{name: "explore", key: "explore-posts.json", readPath: remote.PathExploreRead, storePath: remote.PathExploreStore},
	{name: "stories", key: "stories.json", readPath: remote.PathStoriesRead, storePath: remote.PathStoriesStore},
}

var emptyDocument = []byte("[]")

// readDocument returns the stored array. A missing or unreadable document
// reads as an empty array.
func (s *Server) readDocument(doc document) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := s.docs.Get(c.UserContext(), doc.key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			raw = emptyDocument
		case err != nil:
			s.logger.ErrorContext(c.UserContext(), "document read failed",
				slog.String("collection", doc.name),
				slog.String("error", err.Error()),
			)
			return jsonError(c, fiber.StatusInternalServerError, "Failed to read data.")
		case !isJSONArray(raw):
			raw = emptyDocument
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Send(raw)
	}
}

// storeDocument replaces the whole document with the request body, which must
// be a JSON array. An empty body stores an empty array.
func (s *Server) storeDocument(doc document) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := bytes.TrimSpace(c.Body())
		if len(body) == 0 {
			body = emptyDocument
		}

		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid JSON body.")
		}
		if _, ok := payload.([]any); !ok {
			return jsonError(c, fiber.StatusBadRequest, "Payload must be an array.")
		}

		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Invalid JSON body.")
		}

		if err := s.docs.Set(c.UserContext(), doc.key, compact.Bytes()); err != nil {
			s.logger.ErrorContext(c.UserContext(), "document write failed",
				slog.String("collection", doc.name),
				slog.String("error", err.Error()),
			)
			return jsonError(c, fiber.StatusInternalServerError, "Failed to store data.")
		}

		observability.DocumentWrites.WithLabelValues(doc.name).Inc()
		return c.JSON(fiber.Map{"success": true})
	}
}

func isJSONArray(raw []byte) bool {
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil && items != nil
}
