package blog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"portfolio-api/internal/models"
)

// ErrNotFound indicates no published post exists for the requested slug.
var ErrNotFound = errors.New("post not found")

const frontMatterDelimiter = "---"

// wordsPerMinute drives the derived read-time estimate.
const wordsPerMinute = 200

// Library holds all blog posts loaded from a directory of markdown files.
// Posts are read once at startup; view counts are process-local.
type Library struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	order []string
}

type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	Tags        []string `yaml:"tags"`
	Author      string   `yaml:"author"`
	CoverImage  string   `yaml:"cover_image"`
	Published   bool     `yaml:"published"`
}

// ListResult is one page of published posts.
type ListResult struct {
	Posts []models.Post `json:"data"`
	Count int           `json:"count"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
}

// Load reads every *.md file under dir into a Library. The slug is the file
// name without extension. Files that fail to parse abort the load.
func Load(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read blog directory %q: %w", dir, err)
	}

	lib := &Library{posts: make(map[string]*models.Post)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read post %q: %w", path, err)
		}

		slug := strings.ToLower(strings.TrimSuffix(entry.Name(), ".md"))
		post, err := parsePost(slug, data)
		if err != nil {
			return nil, fmt.Errorf("parse post %q: %w", path, err)
		}
		lib.posts[slug] = post
	}

	lib.order = make([]string, 0, len(lib.posts))
	for slug := range lib.posts {
		lib.order = append(lib.order, slug)
	}
	sort.Slice(lib.order, func(i, j int) bool {
		a, b := lib.posts[lib.order[i]], lib.posts[lib.order[j]]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Slug < b.Slug
	})

	return lib, nil
}

// Len returns the number of loaded posts, published or not.
func (l *Library) Len() int {
	return len(l.posts)
}

// List returns one page of published posts, newest first, optionally
// filtered by tag and by a case-insensitive search over title, description
// and tags. Rendered HTML is omitted from listings.
func (l *Library) List(tag, search string, limit, page int) ListResult {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	var matched []models.Post
	for _, slug := range l.order {
		post := l.posts[slug]
		if !post.Published {
			continue
		}
		if tag != "" && !hasTag(post.Tags, tag) {
			continue
		}
		if search != "" && !matchesSearch(post, search) {
			continue
		}

		summary := *post
		summary.HTML = ""
		summary.Views = l.views(slug)
		matched = append(matched, summary)
	}

	total := len(matched)
	pages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return ListResult{
		Posts: matched[start:end],
		Count: end - start,
		Total: total,
		Page:  page,
		Pages: pages,
	}
}

// Get returns the published post for slug with its rendered HTML, counting
// the view. Unknown and unpublished slugs both return ErrNotFound.
func (l *Library) Get(slug string) (models.Post, error) {
	post, ok := l.posts[strings.ToLower(slug)]
	if !ok || !post.Published {
		return models.Post{}, ErrNotFound
	}

	l.mu.Lock()
	post.Views++
	result := *post
	l.mu.Unlock()

	return result, nil
}

func (l *Library) views(slug string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.posts[slug].Views
}

func parsePost(slug string, data []byte) (*models.Post, error) {
	meta, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	if strings.TrimSpace(fm.Title) == "" {
		return nil, errors.New("front matter is missing a title")
	}

	date, err := parseDate(fm.Date)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var rendered bytes.Buffer
	if err := md.Convert(body, &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	return &models.Post{
		Slug:        slug,
		Title:       fm.Title,
		Description: fm.Description,
		Author:      fm.Author,
		Date:        date,
		Tags:        fm.Tags,
		CoverImage:  fm.CoverImage,
		ReadTime:    readTime(body),
		Published:   fm.Published,
		HTML:        rendered.String(),
	}, nil
}

func splitFrontMatter(data []byte) (meta, body []byte, err error) {
	content := string(data)
	if !strings.HasPrefix(content, frontMatterDelimiter+"\n") {
		return nil, nil, errors.New("post is missing front matter")
	}

	rest := content[len(frontMatterDelimiter)+1:]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx < 0 {
		return nil, nil, errors.New("front matter is not terminated")
	}

	meta = []byte(rest[:idx])
	body = []byte(strings.TrimPrefix(rest[idx+1+len(frontMatterDelimiter):], "\n"))
	return meta, body, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("front matter is missing a date")
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

func readTime(body []byte) string {
	words := len(strings.Fields(string(body)))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func matchesSearch(post *models.Post, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(post.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(post.Description), needle) {
		return true
	}
	return hasTag(post.Tags, search)
}
