// Package seed builds the curated explore posts shipped with the
// application. Seed posts are regenerated on every load and never persisted.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"revayat/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	// GalleryCategory selects the documents that become seed posts.
	GalleryCategory = "گزارش تصویری"
	// AuthorID is the pseudo-author of every seed post.
	AuthorID = "revayat-seed"
	// AuthorName is the display name of the seed author.
	AuthorName = "روایت تصویری"
)

//go:embed gallery.yaml
var galleryYAML []byte

// Document is one curated document tile.
type Document struct {
	Slug     string `yaml:"slug"`
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Image    string `yaml:"image"`
	Size     string `yaml:"size"`
}

type catalog struct {
	Documents []Document `yaml:"documents"`
}

// ParseDocuments decodes a YAML catalog. Tiles without a size default to
// "normal".
func ParseDocuments(data []byte) ([]Document, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse gallery: %w", err)
	}
	for i := range c.Documents {
		if c.Documents[i].Size == "" {
			c.Documents[i].Size = "normal"
		}
	}
	return c.Documents, nil
}

// Documents returns the embedded catalog.
func Documents() []Document {
	docs, err := ParseDocuments(galleryYAML)
	if err != nil {
		// embedded at build time; a parse failure is a programming error
		panic(err)
	}
	return docs
}

// BuildPosts converts the photo-report documents into explore posts. The
// i-th post is dated i days before now.
func BuildPosts(docs []Document, now time.Time) []models.ExplorePost {
	posts := make([]models.ExplorePost, 0, len(docs))
	index := 0
	for _, doc := range docs {
		if doc.Category != GalleryCategory {
			continue
		}
		id := doc.Slug
		if id == "" {
			id = fmt.Sprintf("gallery-%d", index)
		}
		posts = append(posts, models.ExplorePost{
			ID:         id,
			AuthorID:   AuthorID,
			AuthorName: AuthorName,
			Image:      doc.Image,
			Caption:    fmt.Sprintf("قاب منتخب «%s»", doc.Title),
			Likes:      []string{},
			Comments:   []models.Comment{},
			CreatedAt:  models.NewTimestamp(now.Add(-time.Duration(index) * 24 * time.Hour)),
			Origin:     models.OriginSeed,
		})
		index++
	}
	return posts
}

// Posts builds the seed posts from the embedded catalog.
func Posts(now time.Time) []models.ExplorePost {
	return BuildPosts(Documents(), now)
}
