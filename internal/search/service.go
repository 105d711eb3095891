package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service answers public cross-store searches. Results for a normalized
// query are cached in redis for a short TTL; concurrent identical misses
// collapse into one rebuild. The cache is an optimization only, a redis
// outage degrades to direct queries.
type Service struct {
	repo   RepositoryPort
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func normalize(q Query) Query {
	q.Text = strings.ToLower(strings.TrimSpace(q.Text))
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	switch q.SortBy {
	case "minPrice", "maxPrice", "avgPrice", "name":
	default:
		q.SortBy = "name"
	}
	if q.SortOrder != "desc" {
		q.SortOrder = "asc"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPageSize
	}
	if q.PerPage > maxPageSize {
		q.PerPage = maxPageSize
	}
	return q
}

func cacheKey(q Query) string {
	return fmt.Sprintf("search:%s|%s|%t|%s|%s|%d|%d",
		q.Text, q.Category, q.IncludeOutOfStock, q.SortBy, q.SortOrder, q.Page, q.PerPage)
}

// Search runs the aggregation for one query.
func (s *Service) Search(ctx context.Context, query Query) (Result, error) {
	query = normalize(query)
	key := cacheKey(query)

	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		// Re-check under the flight lock: a sibling call may have just
		// populated the key.
		if cached, ok := s.fromCache(ctx, key); ok {
			return cached, nil
		}
		result, err := s.build(ctx, query)
		if err != nil {
			return Result{}, err
		}
		s.toCache(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

func (s *Service) build(ctx context.Context, query Query) (Result, error) {
	records, err := s.repo.Offers(ctx, query)
	if err != nil {
		return Result{}, err
	}

	byProduct := make(map[int64]*ProductGroup)
	var order []int64
	for _, rec := range records {
		group, ok := byProduct[rec.ProductID]
		if !ok {
			group = &ProductGroup{
				ProductID:            rec.ProductID,
				Name:                 rec.Name,
				Brand:                rec.Brand,
				GenericName:          rec.GenericName,
				Category:             rec.Category,
				PrescriptionRequired: rec.PrescriptionRequired,
			}
			byProduct[rec.ProductID] = group
			order = append(order, rec.ProductID)
		}
		group.Offers = append(group.Offers, rec.Offer)
	}

	groups := make([]ProductGroup, 0, len(order))
	for _, id := range order {
		group := byProduct[id]
		var sum float64
		group.MinPrice = group.Offers[0].Price
		group.MaxPrice = group.Offers[0].Price
		for _, offer := range group.Offers {
			if offer.Price < group.MinPrice {
				group.MinPrice = offer.Price
			}
			if offer.Price > group.MaxPrice {
				group.MaxPrice = offer.Price
			}
			sum += offer.Price
		}
		group.AvgPrice = math.Round(sum/float64(len(group.Offers))*100) / 100
		group.TotalStores = len(group.Offers)
		groups = append(groups, *group)
	}

	sortGroups(groups, query.SortBy, query.SortOrder)

	total := len(groups)
	pages := int(math.Ceil(float64(total) / float64(query.PerPage)))
	start := (query.Page - 1) * query.PerPage
	if start > total {
		start = total
	}
	end := start + query.PerPage
	if end > total {
		end = total
	}

	page := groups[start:end]
	if page == nil {
		page = []ProductGroup{}
	}
	return Result{
		Products: page,
		Total:    total,
		Page:     query.Page,
		Pages:    pages,
		Limit:    query.PerPage,
	}, nil
}

func sortGroups(groups []ProductGroup, sortBy, sortOrder string) {
	less := func(a, b ProductGroup) bool {
		switch sortBy {
		case "minPrice":
			return a.MinPrice < b.MinPrice
		case "maxPrice":
			return a.MaxPrice < b.MaxPrice
		case "avgPrice":
			return a.AvgPrice < b.AvgPrice
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if sortOrder == "desc" {
			return less(groups[j], groups[i])
		}
		return less(groups[i], groups[j])
	})
}

func (s *Service) fromCache(ctx context.Context, key string) (Result, bool) {
	if s.cache == nil {
		return Result{}, false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("search cache read failed", slog.Any("error", err))
		}
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

func (s *Service) toCache(ctx context.Context, key string, result Result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("search cache write failed", slog.Any("error", err))
	}
}
