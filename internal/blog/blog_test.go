package blog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePost = `---
title: Building a Fallback Gateway
description: Surviving flaky free-tier models
date: 2026-03-10
tags: [go, resilience]
author: Site Owner
published: true
---
When the first model is busy, try the **next one**.

| a | b |
|---|---|
| 1 | 2 |
`

func writePosts(t *testing.T, posts map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range posts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadParsesFrontMatterAndRendersMarkdown(t *testing.T) {
	dir := writePosts(t, map[string]string{"fallback-gateway.md": samplePost})

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Len() != 1 {
		t.Fatalf("Len = %d, want 1", lib.Len())
	}

	post, err := lib.Get("fallback-gateway")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if post.Title != "Building a Fallback Gateway" {
		t.Errorf("title = %q", post.Title)
	}
	if post.Date.Format("2006-01-02") != "2026-03-10" {
		t.Errorf("date = %v", post.Date)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "go" {
		t.Errorf("tags = %v", post.Tags)
	}
	if !strings.Contains(post.HTML, "<strong>next one</strong>") {
		t.Errorf("HTML missing rendered emphasis: %q", post.HTML)
	}
	if !strings.Contains(post.HTML, "<table>") {
		t.Errorf("HTML missing GFM table: %q", post.HTML)
	}
	if post.ReadTime != "1 min read" {
		t.Errorf("read time = %q", post.ReadTime)
	}
}

func TestGetCountsViews(t *testing.T) {
	dir := writePosts(t, map[string]string{"fallback-gateway.md": samplePost})
	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := lib.Get("fallback-gateway"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	post, err := lib.Get("fallback-gateway")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if post.Views != 4 {
		t.Errorf("views = %d, want 4", post.Views)
	}
}

func TestUnpublishedPostsAreHidden(t *testing.T) {
	draft := strings.Replace(samplePost, "published: true", "published: false", 1)
	dir := writePosts(t, map[string]string{"draft.md": draft})

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := lib.Get("draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(draft) error = %v, want ErrNotFound", err)
	}
	if result := lib.List("", "", 10, 1); result.Total != 0 {
		t.Errorf("List total = %d, want 0", result.Total)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	mkPost := func(title, date, tags string) string {
		return "---\ntitle: " + title + "\ndescription: d\ndate: " + date +
			"\ntags: [" + tags + "]\npublished: true\n---\nbody\n"
	}
	dir := writePosts(t, map[string]string{
		"oldest.md": mkPost("Oldest Post", "2026-01-01", "go"),
		"middle.md": mkPost("Middle Post", "2026-02-01", "web"),
		"newest.md": mkPost("Newest Post", "2026-03-01", "go, web"),
	})

	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	all := lib.List("", "", 10, 1)
	if all.Total != 3 || all.Pages != 1 {
		t.Fatalf("total = %d pages = %d, want 3 and 1", all.Total, all.Pages)
	}
	if all.Posts[0].Slug != "newest" || all.Posts[2].Slug != "oldest" {
		t.Errorf("order = %v, want newest first", slugs(all))
	}
	if all.Posts[0].HTML != "" {
		t.Error("listing should not include rendered HTML")
	}

	tagged := lib.List("go", "", 10, 1)
	if tagged.Total != 2 {
		t.Errorf("tag filter total = %d, want 2", tagged.Total)
	}

	searched := lib.List("", "middle", 10, 1)
	if searched.Total != 1 || searched.Posts[0].Slug != "middle" {
		t.Errorf("search result = %v, want just middle", slugs(searched))
	}

	paged := lib.List("", "", 2, 2)
	if paged.Count != 1 || paged.Pages != 2 || paged.Posts[0].Slug != "oldest" {
		t.Errorf("page 2 = %v (count %d, pages %d), want [oldest]", slugs(paged), paged.Count, paged.Pages)
	}

	beyond := lib.List("", "", 2, 5)
	if beyond.Count != 0 {
		t.Errorf("page beyond end count = %d, want 0", beyond.Count)
	}
}

func TestLoadRejectsBrokenFrontMatter(t *testing.T) {
	cases := map[string]string{
		"missing.md":      "no front matter at all\n",
		"unterminated.md": "---\ntitle: x\n",
		"untitled.md":     "---\ndate: 2026-01-01\npublished: true\n---\nbody\n",
		"undated.md":      "---\ntitle: x\npublished: true\n---\nbody\n",
	}
	for name, content := range cases {
		dir := writePosts(t, map[string]string{name: content})
		if _, err := Load(dir); err == nil {
			t.Errorf("%s: expected load error", name)
		}
	}
}

func TestLoadIgnoresNonMarkdownFiles(t *testing.T) {
	dir := writePosts(t, map[string]string{
		"post.md":    samplePost,
		"notes.txt":  "ignore me",
		"image.webp": "binary",
	})
	lib, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Len() != 1 {
		t.Errorf("Len = %d, want 1", lib.Len())
	}
}

func slugs(r ListResult) []string {
	out := make([]string, len(r.Posts))
	for i, p := range r.Posts {
		out[i] = p.Slug
	}
	return out
}
