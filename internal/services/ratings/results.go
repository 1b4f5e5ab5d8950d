// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratings

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"pageratings/internal/cache"
	"pageratings/internal/models"
	"pageratings/internal/repository"
)

// Cache key namespaces. The list and the aggregate live in separate
// namespaces so a future partial invalidation stays possible; writes
// currently drop both.
const (
	cacheNamespaceList    = "list"
	cacheNamespaceResults = "results"
)

func (s *Service) listKey(page string) string {
	return cache.Key(s.opts.CacheSalt, cacheNamespaceList, page)
}

func (s *Service) resultsKey(page string) string {
	return cache.Key(s.opts.CacheSalt, cacheNamespaceResults, page)
}

// Results summarizes the eligible ratings of one page.
type Results struct {
	Min            int         `json:"min"`
	Max            int         `json:"max"`
	Count          int         `json:"count"`
	Average        float64     `json:"average"`
	AverageRounded float64     `json:"average_rounded"`
	Histogram      map[int]int `json:"histogram"`
}

// GetActiveModeratedRatings returns all activated, moderated ratings for a
// page. Results are cached until a write on the page invalidates them.
func (s *Service) GetActiveModeratedRatings(ctx context.Context, page string) ([]models.Rating, error) {
	key := s.listKey(page)
	if raw, ok := s.cacheFetch(ctx, key); ok {
		var cached []models.Rating
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		slog.Warn("discarding undecodable cache entry", "page", page)
	}

	eligible, err := s.activeModerated(ctx, page)
	if err != nil {
		return nil, err
	}

	s.cacheSave(ctx, key, eligible)
	return eligible, nil
}

// GetRatingResults returns the aggregate statistics for a page, cached in
// its own namespace.
func (s *Service) GetRatingResults(ctx context.Context, page string) (*Results, error) {
	key := s.resultsKey(page)
	if raw, ok := s.cacheFetch(ctx, key); ok {
		var cached Results
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		slog.Warn("discarding undecodable cache entry", "page", page)
	}

	eligible, err := s.activeModerated(ctx, page)
	if err != nil {
		return nil, err
	}

	results := s.aggregate(eligible)
	s.cacheSave(ctx, key, results)
	return results, nil
}

// activeModerated is the uncached eligibility query both read paths share:
// a rating counts only when it is moderated and activated.
func (s *Service) activeModerated(ctx context.Context, page string) ([]models.Rating, error) {
	found, err := s.repo.Find(ctx, repository.WithPage(page))
	if err != nil {
		return nil, err
	}

	eligible := make([]models.Rating, 0, len(found))
	for i := range found {
		if found[i].Moderated && found[i].IsActivated() {
			eligible = append(eligible, found[i])
		}
	}
	return eligible, nil
}

// aggregate computes count, average and histogram over eligible ratings.
func (s *Service) aggregate(eligible []models.Rating) *Results {
	results := &Results{
		Min:       s.opts.MinStars,
		Max:       s.opts.MaxStars,
		Histogram: make(map[int]int, s.opts.MaxStars-s.opts.MinStars+1),
	}
	for star := s.opts.MinStars; star <= s.opts.MaxStars; star++ {
		results.Histogram[star] = 0
	}

	sum := 0
	for i := range eligible {
		results.Count++
		sum += eligible[i].Stars
		results.Histogram[eligible[i].Stars]++
	}

	if results.Count > 0 {
		average := float64(sum) / float64(results.Count)
		// Half-up to one decimal for display, nearest half star for widgets.
		results.Average = math.Round(average*10) / 10
		results.AverageRounded = math.Round(average*2) / 2
	}
	return results
}

// cacheFetch reads a key, treating any cache failure as a miss.
func (s *Service) cacheFetch(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.cache.Fetch(ctx, key)
	if err != nil {
		slog.Warn("cache fetch failed", "error", err)
		return nil, false
	}
	return raw, ok
}

// cacheSave stores a value, logging instead of failing the read path.
func (s *Service) cacheSave(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache encode failed", "error", err)
		return
	}
	if err := s.cache.Save(ctx, key, raw); err != nil {
		slog.Warn("cache save failed", "error", err)
	}
}
