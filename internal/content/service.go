// Package content serves editorial pages and posts from WordPress,
// cached in Redis so the storefront does not hammer wp-json.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/groenvelt/storefront-bff/internal/upstream/wordpress"
	"github.com/groenvelt/storefront-bff/pkg/config"
	"github.com/groenvelt/storefront-bff/pkg/logger"
	pkgredis "github.com/groenvelt/storefront-bff/pkg/redis"
)

type contentSource interface {
	ListPosts(ctx context.Context, page, perPage int) ([]wordpress.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*wordpress.Post, error)
	GetPageBySlug(ctx context.Context, slug string) (*wordpress.Post, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

type Service struct {
	source contentSource
	cache  cacheStore
	ttl    time.Duration
	logg   *logger.Logger
}

func NewService(source contentSource, cache cacheStore, cfg config.ContentConfig, logg *logger.Logger) *Service {
	return &Service{source: source, cache: cache, ttl: cfg.CacheTTL, logg: logg}
}

// ListPosts returns a page of blog posts, cached per page number.
func (s *Service) ListPosts(ctx context.Context, page, perPage int) ([]wordpress.Post, error) {
	key := s.cache.CacheKey("posts", fmt.Sprintf("p%d-n%d", page, perPage))
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var posts []wordpress.Post
		if err := json.Unmarshal([]byte(raw), &posts); err == nil {
			return posts, nil
		}
	} else if !errors.Is(err, pkgredis.Nil) {
		s.logg.Warn(ctx, "content cache read failed")
	}

	posts, err := s.source.ListPosts(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, posts)
	return posts, nil
}

// GetPost returns one post by slug.
func (s *Service) GetPost(ctx context.Context, slug string) (*wordpress.Post, error) {
	return s.cachedSingle(ctx, "post", slug, s.source.GetPostBySlug)
}

// GetPage returns one static page by slug.
func (s *Service) GetPage(ctx context.Context, slug string) (*wordpress.Post, error) {
	return s.cachedSingle(ctx, "page", slug, s.source.GetPageBySlug)
}

func (s *Service) cachedSingle(ctx context.Context, scope, slug string, fetch func(context.Context, string) (*wordpress.Post, error)) (*wordpress.Post, error) {
	key := s.cache.CacheKey(scope, slug)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var post wordpress.Post
		if err := json.Unmarshal([]byte(raw), &post); err == nil {
			return &post, nil
		}
	} else if !errors.Is(err, pkgredis.Nil) {
		s.logg.Warn(ctx, "content cache read failed")
	}

	post, err := fetch(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, post)
	return post, nil
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logg.Warn(ctx, "content cache write failed")
	}
}
