// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeRatingStore is an in-memory RatingStore for tests.
type fakeRatingStore struct {
	events []RatingEvent
	err    error
}

func (s *fakeRatingStore) FindByUser(_ context.Context, userID string) ([]RatingEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []RatingEvent
	for _, ev := range s.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *fakeRatingStore) Upsert(_ context.Context, userID, itemID string, value int) (RatingEvent, error) {
	if s.err != nil {
		return RatingEvent{}, s.err
	}
	for i := range s.events {
		if s.events[i].UserID == userID && s.events[i].ItemID == itemID {
			s.events[i].Value = value
			s.events[i].Timestamp = time.Now()
			return s.events[i], nil
		}
	}
	ev := RatingEvent{UserID: userID, ItemID: itemID, Value: value, Timestamp: time.Now()}
	s.events = append(s.events, ev)
	return ev, nil
}

// fakeCatalogStore is an in-memory CatalogStore for tests.
type fakeCatalogStore struct {
	items []CatalogItem

	byGenreErr error
	byIDsErr   error
	popularErr error

	lastGenreQuery   []string
	lastPopularLimit int
}

func (s *fakeCatalogStore) FindByGenres(_ context.Context, genreIDs, excludeIDs []string, limit int) ([]CatalogItem, error) {
	s.lastGenreQuery = genreIDs
	if s.byGenreErr != nil {
		return nil, s.byGenreErr
	}

	genres := make(map[string]struct{}, len(genreIDs))
	for _, g := range genreIDs {
		genres[g] = struct{}{}
	}
	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	var out []CatalogItem
	for _, item := range s.items {
		if _, ok := genres[item.GenreID]; !ok {
			continue
		}
		if _, ok := exclude[item.ItemID]; ok {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeCatalogStore) FindByIDs(_ context.Context, itemIDs []string) ([]CatalogItem, error) {
	if s.byIDsErr != nil {
		return nil, s.byIDsErr
	}
	byID := make(map[string]CatalogItem, len(s.items))
	for _, item := range s.items {
		byID[item.ItemID] = item
	}
	var out []CatalogItem
	for _, id := range itemIDs {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *fakeCatalogStore) FindPopular(_ context.Context, limit int) ([]CatalogItem, error) {
	s.lastPopularLimit = limit
	if s.popularErr != nil {
		return nil, s.popularErr
	}

	out := make([]CatalogItem, len(s.items))
	copy(out, s.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRatings != out[j].TotalRatings {
			return out[i].TotalRatings > out[j].TotalRatings
		}
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeModelClient returns canned model output.
type fakeModelClient struct {
	scores []ModelScore
	err    error
	calls  int
}

func (c *fakeModelClient) Recommend(_ context.Context, _ string, _ int) ([]ModelScore, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.scores, nil
}

// testCatalog builds a catalog with several genres and a quality spread.
func testCatalog() []CatalogItem {
	var items []CatalogItem
	genres := map[string]int{"scifi": 8, "drama": 4, "action": 4, "documentary": 3}
	for genre, n := range genres {
		for i := 1; i <= n; i++ {
			items = append(items, CatalogItem{
				ItemID:        fmt.Sprintf("%s-%d", genre, i),
				GenreID:       genre,
				AverageRating: 5.0 - float64(i)*0.2,
				TotalRatings:  200 - i*10,
			})
		}
	}
	return items
}

// scifiFan returns six recent five-star scifi ratings for user-1.
func scifiFan() []RatingEvent {
	events := make([]RatingEvent, 6)
	for i := range events {
		events[i] = RatingEvent{
			UserID:    "user-1",
			ItemID:    fmt.Sprintf("scifi-%d", i+1),
			GenreID:   "scifi",
			GenreName: "Science Fiction",
			Value:     5,
			Timestamp: profileNow.AddDate(0, 0, -(i + 1)),
		}
	}
	return events
}

func newTestEngine(t *testing.T, cfg *Config, ratings RatingStore, catalog CatalogStore, model ModelClient) *Engine {
	t.Helper()

	eng, err := NewEngine(cfg, zerolog.Nop(), ratings, catalog, model)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	eng.now = func() time.Time { return profileNow }
	return eng
}

func TestNewEngineValidation(t *testing.T) {
	ratings := &fakeRatingStore{}
	catalog := &fakeCatalogStore{}

	if _, err := NewEngine(nil, zerolog.Nop(), ratings, catalog, nil); err != nil {
		t.Errorf("nil config should use defaults, got error %v", err)
	}

	bad := DefaultConfig()
	bad.MinRatings = 0
	if _, err := NewEngine(bad, zerolog.Nop(), ratings, catalog, nil); err == nil {
		t.Error("invalid config accepted")
	}

	if _, err := NewEngine(nil, zerolog.Nop(), nil, catalog, nil); err == nil {
		t.Error("nil rating store accepted")
	}
	if _, err := NewEngine(nil, zerolog.Nop(), ratings, nil, nil); err == nil {
		t.Error("nil catalog store accepted")
	}
}

func TestRecommendNewUserGetsPopular(t *testing.T) {
	catalog := &fakeCatalogStore{items: testCatalog()}
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{}, catalog, nil)

	result, err := eng.Recommend(context.Background(), "new-user", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if result.Algorithm != AlgorithmPopular {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmPopular)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
	if result.Progress == nil {
		t.Fatal("Progress = nil, want progress toward personalization")
	}
	if result.Progress.Current != 0 || result.Progress.Required != 5 {
		t.Errorf("Progress = %+v, want {0 5}", result.Progress)
	}
	if len(result.Items) != 5 {
		t.Errorf("got %d items, want 5", len(result.Items))
	}

	// Popularity scores are normalized average ratings.
	for _, item := range result.Items {
		if item.Score < 0 || item.Score > 1 {
			t.Errorf("item %q score = %v, want in [0, 1]", item.ItemID, item.Score)
		}
	}
}

func TestRecommendInsufficientHistoryProgress(t *testing.T) {
	events := scifiFan()[:3]
	catalog := &fakeCatalogStore{items: testCatalog()}
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{events: events}, catalog, nil)

	result, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if result.Algorithm != AlgorithmPopular {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmPopular)
	}
	if result.Progress == nil || result.Progress.Current != 3 || result.Progress.Required != 5 {
		t.Errorf("Progress = %+v, want {3 5}", result.Progress)
	}
}

func TestRecommendContentBased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorationRatio = 0 // isolate the scoring path

	ratings := &fakeRatingStore{events: scifiFan()}
	catalog := &fakeCatalogStore{items: testCatalog()}
	eng := newTestEngine(t, cfg, ratings, catalog, nil)

	result, err := eng.Recommend(context.Background(), "user-1", 2)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if result.Algorithm != AlgorithmContentBased {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmContentBased)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true for the content-based path")
	}
	if result.Progress != nil {
		t.Errorf("Progress = %+v, want nil for personalized results", result.Progress)
	}
	if len(result.Items) == 0 {
		t.Fatal("got no items")
	}

	rated := make(map[string]struct{})
	for _, ev := range ratings.events {
		rated[ev.ItemID] = struct{}{}
	}
	for _, item := range result.Items {
		if _, ok := rated[item.ItemID]; ok {
			t.Errorf("already-rated item %q recommended", item.ItemID)
		}
		if item.GenreID != "scifi" {
			t.Errorf("item %q from genre %q, want scifi (the only liked genre)", item.ItemID, item.GenreID)
		}
	}

	// Ranked descending by score.
	for i := 1; i < len(result.Items); i++ {
		if result.Items[i].Score > result.Items[i-1].Score {
			t.Errorf("items not sorted at %d: %v > %v", i, result.Items[i].Score, result.Items[i-1].Score)
		}
	}
}

func TestRecommendModelPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorationRatio = 0

	model := &fakeModelClient{scores: []ModelScore{
		{ItemID: "drama-1", Score: 0.93},
		{ItemID: "scifi-1", Score: 0.88}, // already rated, must be dropped
		{ItemID: "action-2", Score: 0.71},
	}}

	ratings := &fakeRatingStore{events: scifiFan()}
	catalog := &fakeCatalogStore{items: testCatalog()}
	eng := newTestEngine(t, cfg, ratings, catalog, model)

	result, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if result.Algorithm != AlgorithmModel {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmModel)
	}
	if result.Fallback {
		t.Error("Fallback = true, want false for model results")
	}

	wantIDs := []string{"drama-1", "action-2"}
	if len(result.Items) != len(wantIDs) {
		t.Fatalf("got %d items, want %d", len(result.Items), len(wantIDs))
	}
	for i, want := range wantIDs {
		if result.Items[i].ItemID != want {
			t.Errorf("item %d = %q, want %q (model order preserved)", i, result.Items[i].ItemID, want)
		}
	}

	// Genres annotated from the catalog for diversity accounting.
	if result.Items[0].GenreID != "drama" {
		t.Errorf("drama-1 genre = %q, want drama", result.Items[0].GenreID)
	}
}

func TestRecommendModelFailureFallsBackToContent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorationRatio = 0

	model := &fakeModelClient{err: errors.New("connection refused")}
	eng := newTestEngine(t, cfg, &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, model)

	result, err := eng.Recommend(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v, want graceful fallback", err)
	}

	if model.calls != 1 {
		t.Errorf("model called %d times, want 1", model.calls)
	}
	if result.Algorithm != AlgorithmContentBased {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmContentBased)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
}

func TestRecommendModelEmptyFallsBackToContent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorationRatio = 0

	model := &fakeModelClient{} // cold start: empty list
	eng := newTestEngine(t, cfg, &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, model)

	result, err := eng.Recommend(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Algorithm != AlgorithmContentBased {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmContentBased)
	}
}

func TestRecommendNoViableCandidatesFallsBackToPopular(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableDecay = true

	// Enough history, but the user dislikes everything they rated: no
	// genre has a positive score, so content-based scoring yields nothing.
	events := make([]RatingEvent, 5)
	for i := range events {
		events[i] = RatingEvent{
			UserID:    "user-1",
			ItemID:    fmt.Sprintf("drama-%d", i%4+1),
			GenreID:   "drama",
			Value:     1,
			Timestamp: profileNow.AddDate(0, 0, -(i + 1)),
		}
	}

	eng := newTestEngine(t, cfg, &fakeRatingStore{events: events}, &fakeCatalogStore{items: testCatalog()}, nil)

	result, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if result.Algorithm != AlgorithmPopular {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmPopular)
	}
	if result.Progress != nil {
		t.Errorf("Progress = %+v, want nil (history was sufficient)", result.Progress)
	}
}

func TestRecommendContentStoreErrorFallsBackToPopular(t *testing.T) {
	catalog := &fakeCatalogStore{items: testCatalog(), byGenreErr: errors.New("timeout")}
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{events: scifiFan()}, catalog, nil)

	result, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v, want graceful fallback", err)
	}
	if result.Algorithm != AlgorithmPopular {
		t.Errorf("Algorithm = %q, want %q", result.Algorithm, AlgorithmPopular)
	}
}

func TestRecommendRatingStoreError(t *testing.T) {
	ratings := &fakeRatingStore{err: errors.New("connection reset")}
	eng := newTestEngine(t, DefaultConfig(), ratings, &fakeCatalogStore{items: testCatalog()}, nil)

	if _, err := eng.Recommend(context.Background(), "user-1", 5); err == nil {
		t.Fatal("Recommend() = nil error, want rating store error")
	}
}

func TestRecommendPopularStoreError(t *testing.T) {
	catalog := &fakeCatalogStore{popularErr: errors.New("timeout")}
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{}, catalog, nil)

	if _, err := eng.Recommend(context.Background(), "new-user", 5); err == nil {
		t.Fatal("Recommend() = nil error, want catalog error")
	}
}

func TestRecommendClampsK(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want int
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -3, 10},
		{"above max clamps", 100, 50},
		{"in range passes through", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &fakeCatalogStore{items: testCatalog()}
			eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{}, catalog, nil)

			if _, err := eng.Recommend(context.Background(), "new-user", tt.k); err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if catalog.lastPopularLimit != tt.want {
				t.Errorf("effective k = %d, want %d", catalog.lastPopularLimit, tt.want)
			}
		})
	}
}

func TestRecommendCache(t *testing.T) {
	ratings := &fakeRatingStore{events: scifiFan()}
	eng := newTestEngine(t, DefaultConfig(), ratings, &fakeCatalogStore{items: testCatalog()}, nil)

	first, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("first Recommend() error = %v", err)
	}
	if first.Cached {
		t.Error("first result marked cached")
	}

	second, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("second Recommend() error = %v", err)
	}
	if !second.Cached {
		t.Error("second result not served from cache")
	}

	// A different k is a different cache entry.
	other, err := eng.Recommend(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if other.Cached {
		t.Error("result for different k served from cache")
	}

	// A new rating moves the latest-rating timestamp and invalidates.
	ratings.events = append(ratings.events, RatingEvent{
		UserID:    "user-1",
		ItemID:    "drama-1",
		GenreID:   "drama",
		Value:     4,
		Timestamp: profileNow.Add(-time.Hour),
	})

	after, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if after.Cached {
		t.Error("result after new rating served from stale cache")
	}
}

func TestRecommendCacheDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Enabled = false

	eng := newTestEngine(t, cfg, &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, nil)

	for i := 0; i < 2; i++ {
		result, err := eng.Recommend(context.Background(), "user-1", 5)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if result.Cached {
			t.Error("caching disabled but result marked cached")
		}
	}
}

func TestRecommendCacheExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = time.Minute

	eng := newTestEngine(t, cfg, &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, nil)

	if _, err := eng.Recommend(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	eng.now = func() time.Time { return profileNow.Add(2 * time.Minute) }

	result, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Cached {
		t.Error("expired entry served from cache")
	}
}

func TestRecommendCachedResultIsolated(t *testing.T) {
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, nil)

	if _, err := eng.Recommend(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	hit, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !hit.Cached || len(hit.Items) == 0 {
		t.Fatalf("expected a non-empty cached result, got %+v", hit)
	}

	// Mutating a served result must not corrupt the cached copy.
	hit.Items[0].ItemID = "clobbered"
	hit.Items[0].Score = -1

	again, err := eng.Recommend(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if again.Items[0].ItemID == "clobbered" || again.Items[0].Score == -1 {
		t.Errorf("cached result shares storage with a served result: %+v", again.Items[0])
	}
}

func TestRatingUpsertLastWriteWins(t *testing.T) {
	store := &fakeRatingStore{}
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "user-1", "scifi-1", 3); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	ev, err := store.Upsert(ctx, "user-1", "scifi-1", 5)
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if ev.Value != 5 {
		t.Errorf("returned value = %d, want 5", ev.Value)
	}

	events, err := store.FindByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after resubmission, want exactly 1", len(events))
	}
	if events[0].Value != 5 {
		t.Errorf("persisted value = %d, want 5", events[0].Value)
	}

	// A different item is a new event, not an update.
	if _, err := store.Upsert(ctx, "user-1", "drama-1", 2); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	events, err = store.FindByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events for two items, want 2", len(events))
	}
}

func TestRecommendSatisfiesDiversity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExplorationRatio = 0

	// Only scifi is liked, so the raw candidate list is single-genre and
	// diversity enforcement must shrink it to its cap.
	eng := newTestEngine(t, cfg, &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, nil)

	result, err := eng.Recommend(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	assertCapSatisfied(t, result.Items, cfg.MinGenres)
}

func TestGenreProfile(t *testing.T) {
	eng := newTestEngine(t, DefaultConfig(), &fakeRatingStore{events: scifiFan()}, &fakeCatalogStore{items: testCatalog()}, nil)

	prof, err := eng.GenreProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GenreProfile() error = %v", err)
	}
	if !prof.HasEnoughData {
		t.Error("HasEnoughData = false, want true")
	}
	if len(prof.Preferences) != 1 || prof.Preferences[0].GenreID != "scifi" {
		t.Errorf("Preferences = %+v, want single scifi entry", prof.Preferences)
	}
}

func TestGenreProfileStoreError(t *testing.T) {
	ratings := &fakeRatingStore{err: errors.New("connection reset")}
	eng := newTestEngine(t, DefaultConfig(), ratings, &fakeCatalogStore{}, nil)

	if _, err := eng.GenreProfile(context.Background(), "user-1"); err == nil {
		t.Fatal("GenreProfile() = nil error, want store error")
	}
}
