package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/google/uuid"
)

// Map-backed store fakes. Each has an Err field to force the next call to
// fail, for degradation tests.

type fakeQualityStore struct {
	mu        sync.Mutex
	qualities map[string]domain.Quality // key: characterID/name
	Err       error
}

func newFakeQualityStore() *fakeQualityStore {
	return &fakeQualityStore{qualities: map[string]domain.Quality{}}
}

func qualityKey(characterID uuid.UUID, name string) string {
	return characterID.String() + "/" + name
}

func (f *fakeQualityStore) Get(ctx context.Context, characterID uuid.UUID, name string) (*domain.Quality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	q, ok := f.qualities[qualityKey(characterID, name)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (f *fakeQualityStore) List(ctx context.Context, characterID uuid.UUID) ([]domain.Quality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.Quality
	for _, q := range f.qualities {
		if q.CharacterID == characterID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeQualityStore) Set(ctx context.Context, q *domain.Quality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	f.qualities[qualityKey(q.CharacterID, q.Name)] = *q
	return nil
}

type fakeStoryletStore struct {
	mu        sync.Mutex
	storylets map[string]domain.Storylet
	unlocks   map[string]map[string]bool // characterID -> key set
	Err       error
}

func newFakeStoryletStore() *fakeStoryletStore {
	return &fakeStoryletStore{
		storylets: map[string]domain.Storylet{},
		unlocks:   map[string]map[string]bool{},
	}
}

func (f *fakeStoryletStore) Create(ctx context.Context, s *domain.Storylet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.storylets[s.Key] = *s
	return nil
}

func (f *fakeStoryletStore) GetByKey(ctx context.Context, key string) (*domain.Storylet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.storylets[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStoryletStore) List(ctx context.Context) ([]domain.Storylet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	keys := make([]string, 0, len(f.storylets))
	for k := range f.storylets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Storylet, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.storylets[k])
	}
	return out, nil
}

func (f *fakeStoryletStore) Unlock(ctx context.Context, characterID uuid.UUID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	set, ok := f.unlocks[characterID.String()]
	if !ok {
		set = map[string]bool{}
		f.unlocks[characterID.String()] = set
	}
	set[key] = true
	return nil
}

func (f *fakeStoryletStore) ListUnlocked(ctx context.Context, characterID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var keys []string
	for k := range f.unlocks[characterID.String()] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

type fakeEntityStore struct {
	mu       sync.Mutex
	entities map[uuid.UUID]domain.Entity
	Err      error
}

func newFakeEntityStore() *fakeEntityStore {
	return &fakeEntityStore{entities: map[uuid.UUID]domain.Entity{}}
}

func (f *fakeEntityStore) Create(ctx context.Context, e *domain.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.FirstMentioned = now
	e.LastUpdated = now
	f.entities[e.ID] = *e
	return nil
}

func (f *fakeEntityStore) GetByName(ctx context.Context, characterID uuid.UUID, entityType domain.EntityType, name string) (*domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, e := range f.entities {
		if e.CharacterID == characterID && e.Type == entityType && e.Name == name {
			out := e
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeEntityStore) Update(ctx context.Context, e *domain.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	e.LastUpdated = time.Now().UTC()
	f.entities[e.ID] = *e
	return nil
}

func (f *fakeEntityStore) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]domain.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.Entity
	for _, e := range f.entities {
		if e.CharacterID == characterID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeEntityStore) ListByType(ctx context.Context, characterID uuid.UUID, entityType domain.EntityType) ([]domain.Entity, error) {
	all, err := f.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	var out []domain.Entity
	for _, e := range all {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRelationshipStore struct {
	mu   sync.Mutex
	rels map[uuid.UUID]domain.Relationship
	Err  error
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{rels: map[uuid.UUID]domain.Relationship{}}
}

func (f *fakeRelationshipStore) Create(ctx context.Context, r *domain.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.EstablishedAt = now
	r.LastInteraction = now
	f.rels[r.ID] = *r
	return nil
}

func (f *fakeRelationshipStore) Get(ctx context.Context, characterID, sourceID, targetID uuid.UUID, relType domain.RelationType) (*domain.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, r := range f.rels {
		if r.CharacterID == characterID && r.SourceEntityID == sourceID &&
			r.TargetEntityID == targetID && r.Type == relType {
			out := r
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRelationshipStore) UpdateStrength(ctx context.Context, id uuid.UUID, strength float32, lastInteraction time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	r, ok := f.rels[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Strength = strength
	r.LastInteraction = lastInteraction
	f.rels[id] = r
	return nil
}

func (f *fakeRelationshipStore) Query(ctx context.Context, filter domain.RelationshipFilter) ([]domain.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.Relationship
	for _, r := range f.rels {
		if r.CharacterID != filter.CharacterID {
			continue
		}
		if filter.Type != nil && r.Type != *filter.Type {
			continue
		}
		if filter.EntityID != nil && r.SourceEntityID != *filter.EntityID && r.TargetEntityID != *filter.EntityID {
			continue
		}
		if filter.EstablishedBefore != nil && !r.EstablishedAt.Before(*filter.EstablishedBefore) {
			continue
		}
		if filter.MinStrength != nil && r.Strength < *filter.MinStrength {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []domain.NarrativeEvent
	Err    error
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{}
}

func (f *fakeEventStore) Append(ctx context.Context, e *domain.NarrativeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEventStore) working(characterID uuid.UUID) []domain.NarrativeEvent {
	var out []domain.NarrativeEvent
	for _, e := range f.events {
		if e.CharacterID == characterID && !e.Archived {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEventStore) ListWorking(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	w := f.working(characterID)
	// newest first
	for i, j := 0, len(w)-1; i < j; i, j = i+1, j-1 {
		w[i], w[j] = w[j], w[i]
	}
	if len(w) > limit {
		w = w[:limit]
	}
	return w, nil
}

func (f *fakeEventStore) ListWorkingOldest(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	w := f.working(characterID)
	if len(w) > limit {
		w = w[:limit]
	}
	return w, nil
}

func (f *fakeEventStore) CountWorking(ctx context.Context, characterID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	return len(f.working(characterID)), nil
}

func (f *fakeEventStore) Archive(ctx context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		set[id] = true
	}
	for i := range f.events {
		if set[f.events[i].ID] {
			f.events[i].Archived = true
		}
	}
	return nil
}

func (f *fakeEventStore) SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]domain.NarrativeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.NarrativeEvent
	for _, e := range f.events {
		if e.CharacterID == characterID && len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventStore) ListRecent(ctx context.Context, characterID uuid.UUID, limit int) ([]domain.NarrativeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.NarrativeEvent
	for _, e := range f.events {
		if e.CharacterID == characterID {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventStore) ListCharactersWithWorkingOverflow(ctx context.Context, threshold int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	counts := map[uuid.UUID]int{}
	for _, e := range f.events {
		if !e.Archived {
			counts[e.CharacterID]++
		}
	}
	var out []uuid.UUID
	for id, n := range counts {
		if n > threshold {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeEpisodeStore struct {
	mu       sync.Mutex
	episodes []domain.EpisodeSummary
	Err      error
}

func newFakeEpisodeStore() *fakeEpisodeStore {
	return &fakeEpisodeStore{}
}

func (f *fakeEpisodeStore) Create(ctx context.Context, e *domain.EpisodeSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	f.episodes = append(f.episodes, *e)
	return nil
}

func (f *fakeEpisodeStore) ListByCharacter(ctx context.Context, characterID uuid.UUID) ([]domain.EpisodeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.EpisodeSummary
	for _, e := range f.episodes {
		if e.CharacterID == characterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEpisodeStore) SearchByEmbedding(ctx context.Context, characterID uuid.UUID, embedding []float32, limit int) ([]domain.EpisodeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []domain.EpisodeSummary
	for _, e := range f.episodes {
		if e.CharacterID == characterID && len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSummaryStore struct {
	mu        sync.Mutex
	summaries map[uuid.UUID]domain.NarrativeSummary
	Err       error
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{summaries: map[uuid.UUID]domain.NarrativeSummary{}}
}

func (f *fakeSummaryStore) Get(ctx context.Context, characterID uuid.UUID) (*domain.NarrativeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.summaries[characterID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSummaryStore) Upsert(ctx context.Context, characterID uuid.UUID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.summaries[characterID] = domain.NarrativeSummary{
		CharacterID: characterID,
		Content:     content,
		UpdatedAt:   time.Now().UTC(),
	}
	return nil
}
