package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/modules/reactor"
	searchDto "anoa.com/shuttleapi/internal/modules/search/dto"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const (
	shuttleIndex       = "shuttles"
	defaultSearchLimit = 20
)

var ErrSearchDisabled = apperror.New(http.StatusServiceUnavailable, "search is not configured", apperror.ErrUnavailable)

type SearchService interface {
	IndexShuttle(ctx context.Context, post entity.Post) error
	DeleteShuttle(ctx context.Context, id string) error
	SearchShuttles(ctx context.Context, query searchDto.SearchQuery) (*searchDto.SearchResponse, error)
	Register(router *reactor.Router)
}

// indexWriter applies document changes to the shuttles index.
type indexWriter interface {
	Upsert(doc searchDto.ShuttleHit) error
	Remove(id string) error
}

type meiliWriter struct {
	client meilisearch.ServiceManager
}

func (w meiliWriter) Upsert(doc searchDto.ShuttleHit) error {
	task, err := w.client.Index(shuttleIndex).AddDocuments([]searchDto.ShuttleHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	logger.Debug().Str("shuttle_id", doc.ID).Int64("task_uid", task.TaskUID).Msg("shuttle indexed")
	return nil
}

func (w meiliWriter) Remove(id string) error {
	_, err := w.client.Index(shuttleIndex).DeleteDocument(id)
	return err
}

type searchService struct {
	client    meilisearch.ServiceManager
	writer    indexWriter
	store     store.Store
	sanitizer *bluemonday.Policy
}

// NewSearchService indexes shuttles into meilisearch, reading the current post
// from s whenever a change arrives. A nil client disables search.
func NewSearchService(client meilisearch.ServiceManager, s store.Store) SearchService {
	svc := &searchService{
		client:    client,
		store:     s,
		sanitizer: bluemonday.StrictPolicy(),
	}
	if client != nil {
		svc.writer = meiliWriter{client: client}
		svc.initIndex()
	}
	return svc
}

func (s *searchService) initIndex() {
	filterable := []any{"author_handle"}
	if _, err := s.client.Index(shuttleIndex).UpdateFilterableAttributes(&filterable); err != nil {
		logger.Warn().Err(err).Msg("failed to update shuttles filterable attributes")
	}

	sortable := []string{"created_at", "like_count"}
	if _, err := s.client.Index(shuttleIndex).UpdateSortableAttributes(&sortable); err != nil {
		logger.Warn().Err(err).Msg("failed to update shuttles sortable attributes")
	}
}

// Register keeps the index in step with the posts collection.
func (s *searchService) Register(router *reactor.Router) {
	if s.client == nil {
		logger.Info().Msg("meilisearch not configured, shuttle search disabled")
		return
	}
	router.Handle("search_index", entity.CollectionPosts, "", s.onShuttleChanged)
}

// onShuttleChanged treats the event as a trigger only. Events for one post may
// be handled in any order, so the index always follows the stored document: a
// post that no longer exists is removed, and a delete that lands while the
// post is being indexed is caught by the second read.
func (s *searchService) onShuttleChanged(ctx context.Context, event store.ChangeEvent) error {
	if event.Kind == store.ChangeDeleted {
		return s.DeleteShuttle(ctx, event.DocID)
	}

	post, err := s.currentShuttle(ctx, event.DocID)
	if err != nil {
		return err
	}
	if post == nil {
		return s.DeleteShuttle(ctx, event.DocID)
	}
	if err := s.IndexShuttle(ctx, *post); err != nil {
		return err
	}

	post, err = s.currentShuttle(ctx, event.DocID)
	if err != nil {
		return err
	}
	if post == nil {
		return s.DeleteShuttle(ctx, event.DocID)
	}
	return nil
}

func (s *searchService) currentShuttle(ctx context.Context, id string) (*entity.Post, error) {
	var post entity.Post
	err := s.store.Get(ctx, entity.CollectionPosts, id, &post)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shuttle %s: %w", id, err)
	}
	return &post, nil
}

func (s *searchService) IndexShuttle(_ context.Context, post entity.Post) error {
	if s.writer == nil {
		return ErrSearchDisabled
	}

	return s.writer.Upsert(searchDto.ShuttleHit{
		ID:             post.ID,
		Body:           s.cleanBody(post.Body),
		AuthorHandle:   post.AuthorHandle,
		AuthorImageURL: post.AuthorImageURL,
		CreatedAt:      post.CreatedAt.Unix(),
		LikeCount:      post.LikeCount,
		CommentCount:   post.CommentCount,
	})
}

func (s *searchService) DeleteShuttle(_ context.Context, id string) error {
	if s.writer == nil {
		return ErrSearchDisabled
	}
	return s.writer.Remove(id)
}

func (s *searchService) SearchShuttles(_ context.Context, query searchDto.SearchQuery) (*searchDto.SearchResponse, error) {
	if s.client == nil {
		return nil, ErrSearchDisabled
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	raw, err := s.client.Index(shuttleIndex).SearchRaw(query.Query, &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"created_at:desc"},
	})
	if err != nil {
		return nil, err
	}

	res := &searchDto.SearchResponse{Hits: []searchDto.ShuttleHit{}}
	if err := json.Unmarshal(*raw, res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return res, nil
}

// cleanBody strips markup so only text is indexed.
func (s *searchService) cleanBody(body string) string {
	sanitized := s.sanitizer.Sanitize(body)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func strPtr(s string) *string {
	return &s
}
