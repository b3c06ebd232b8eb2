package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sponsorhub/internal/cache"
	"sponsorhub/internal/domain/events"
	"sponsorhub/internal/domain/eventstatus"
	"sponsorhub/internal/domain/profiles"
	"sponsorhub/internal/domain/reviews"
	"sponsorhub/internal/domain/storage"
	"sponsorhub/internal/moderation"
	"sponsorhub/internal/trust"
)

// The handler tests run against in-memory stores so the full submission and
// moderation flows can be exercised without a database.

type fakeReviewsStore struct {
	mu    sync.Mutex
	seq   int64
	byID  map[int64]*reviews.Review
	flags map[int64][]reviews.ModerationFlag
	votes map[[2]int64]bool
}

func newFakeReviewsStore() *fakeReviewsStore {
	return &fakeReviewsStore{
		byID:  map[int64]*reviews.Review{},
		flags: map[int64][]reviews.ModerationFlag{},
		votes: map[[2]int64]bool{},
	}
}

func (s *fakeReviewsStore) Create(ctx context.Context, review *reviews.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rv := range s.byID {
		if rv.EventID == review.EventID && rv.UserID == review.UserID {
			return reviews.ErrAlreadyReviewed
		}
	}

	s.seq++
	review.ID = s.seq
	review.Status = moderation.StatusDraft
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt

	stored := *review
	s.byID[review.ID] = &stored
	return nil
}

func (s *fakeReviewsStore) GetByID(ctx context.Context, reviewID int64) (*reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.byID[reviewID]
	if !ok {
		return nil, reviews.ErrNotFound
	}
	cp := *rv
	return &cp, nil
}

func (s *fakeReviewsStore) GetByUserEvent(ctx context.Context, userID, eventID int64) (*reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rv := range s.byID {
		if rv.UserID == userID && rv.EventID == eventID {
			cp := *rv
			return &cp, nil
		}
	}
	return nil, reviews.ErrNotFound
}

func (s *fakeReviewsStore) hasReview(ctx context.Context, userID, eventID int64) bool {
	_, err := s.GetByUserEvent(ctx, userID, eventID)
	return err == nil
}

func (s *fakeReviewsStore) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rv := range s.byID {
		if rv.UserID == userID && !rv.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeReviewsStore) CountRejections(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rv := range s.byID {
		if rv.UserID == userID && rv.Status == moderation.StatusRejected {
			count++
		}
	}
	return count, nil
}

func (s *fakeReviewsStore) ListPublishedByEvent(ctx context.Context, eventID int64) ([]reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reviews.Review
	for _, rv := range s.byID {
		if rv.EventID == eventID && rv.Status == moderation.StatusPublished {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (s *fakeReviewsStore) ListForEvent(ctx context.Context, eventID int64, page, limit int) ([]reviews.Review, error) {
	return s.ListPublishedByEvent(ctx, eventID)
}

func (s *fakeReviewsStore) ListQueue(ctx context.Context, queue reviews.Queue, page, limit int) ([]reviews.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []reviews.Review
	for _, rv := range s.byID {
		flagged := len(s.flags[rv.ID]) > 0
		switch queue {
		case reviews.QueuePending:
			if rv.Status == moderation.StatusPending && !flagged {
				out = append(out, *rv)
			}
		case reviews.QueueFlagged:
			if rv.Status == moderation.StatusPending && flagged {
				out = append(out, *rv)
			}
		case reviews.QueuePublished:
			if rv.Status == moderation.StatusPublished {
				out = append(out, *rv)
			}
		}
	}
	return out, nil
}

func (s *fakeReviewsStore) Transition(ctx context.Context, reviewID int64, action moderation.Action, from moderation.Status, patch reviews.TransitionPatch) (moderation.Status, error) {
	to, err := moderation.Next(from, action)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.byID[reviewID]
	if !ok {
		return "", reviews.ErrNotFound
	}
	if rv.Status != from {
		return "", &moderation.InvalidTransitionError{From: rv.Status, Action: action}
	}

	rv.Status = to
	if patch.TrustScore != nil {
		rv.TrustScore = *patch.TrustScore
	}
	if patch.PublishedAt != nil {
		rv.PublishedAt = patch.PublishedAt
	}
	if patch.IsVerified != nil {
		rv.IsVerified = *patch.IsVerified
	}
	if patch.VerificationMethod != nil {
		rv.VerificationMethod = patch.VerificationMethod
	}
	if patch.ModeratorID != nil {
		rv.ModeratorID = patch.ModeratorID
	}
	if patch.Reason != nil {
		rv.ModerationReason = patch.Reason
	}
	rv.UpdatedAt = time.Now()
	return to, nil
}

func (s *fakeReviewsStore) UpdateContent(ctx context.Context, review *reviews.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.byID[review.ID]
	if !ok || rv.UserID != review.UserID || rv.Status == moderation.StatusRejected {
		return reviews.ErrNotFound
	}

	rv.Title = review.Title
	rv.Content = review.Content
	rv.Rating = review.Rating
	rv.ROI = review.ROI
	rv.SponsorshipTier = review.SponsorshipTier
	rv.SponsorshipCost = review.SponsorshipCost
	rv.LeadsGenerated = review.LeadsGenerated
	rv.DealsClosed = review.DealsClosed
	rv.Recommendation = review.Recommendation
	rv.UpdatedAt = time.Now()
	review.UpdatedAt = rv.UpdatedAt
	return nil
}

func (s *fakeReviewsStore) AddFlags(ctx context.Context, reviewID int64, flags []reviews.ModerationFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range flags {
		dup := false
		for _, existing := range s.flags[reviewID] {
			if existing.Kind == f.Kind {
				dup = true
				break
			}
		}
		if !dup {
			s.flags[reviewID] = append(s.flags[reviewID], f)
		}
	}
	return nil
}

func (s *fakeReviewsStore) GetFlags(ctx context.Context, reviewID int64) ([]reviews.ModerationFlag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reviews.ModerationFlag(nil), s.flags[reviewID]...), nil
}

func (s *fakeReviewsStore) MarkHelpful(ctx context.Context, reviewID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{reviewID, userID}
	if s.votes[key] {
		return false, nil
	}
	s.votes[key] = true
	if rv, ok := s.byID[reviewID]; ok {
		rv.HelpfulCount++
	}
	return true, nil
}

type fakeEventsStore struct {
	mu         sync.Mutex
	events     map[int64]*events.Event
	aggregates map[int64]*events.Aggregate
}

func newFakeEventsStore() *fakeEventsStore {
	return &fakeEventsStore{
		events:     map[int64]*events.Event{},
		aggregates: map[int64]*events.Aggregate{},
	}
}

func (s *fakeEventsStore) add(e *events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *fakeEventsStore) GetByID(ctx context.Context, eventID int64) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, events.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEventsStore) GetBySlug(ctx context.Context, slug string) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, events.ErrNotFound
}

func (s *fakeEventsStore) List(ctx context.Context, filter events.Filter) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []events.Event
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeEventsStore) SetThumbnail(ctx context.Context, eventID int64, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return events.ErrNotFound
	}
	e.ThumbnailURL = &url
	return nil
}

func (s *fakeEventsStore) MarkPastEvents(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *fakeEventsStore) GetAggregate(ctx context.Context, eventID int64) (*events.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.aggregates[eventID]
	if !ok {
		return nil, events.ErrNotFound
	}
	cp := *agg
	return &cp, nil
}

func (s *fakeEventsStore) UpsertAggregate(ctx context.Context, agg *events.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *agg
	s.aggregates[agg.EventID] = &cp
	return nil
}

type fakeEventStatusStore struct {
	mu       sync.Mutex
	statuses map[[2]int64]eventstatus.Status
	events   *fakeEventsStore
	reviews  *fakeReviewsStore
}

func newFakeEventStatusStore(ev *fakeEventsStore, rv *fakeReviewsStore) *fakeEventStatusStore {
	return &fakeEventStatusStore{
		statuses: map[[2]int64]eventstatus.Status{},
		events:   ev,
		reviews:  rv,
	}
}

func (s *fakeEventStatusStore) Set(ctx context.Context, userID, eventID int64, status eventstatus.Status) error {
	if !status.Valid() {
		return eventstatus.ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[[2]int64{userID, eventID}] = status
	return nil
}

func (s *fakeEventStatusStore) Clear(ctx context.Context, userID, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, [2]int64{userID, eventID})
	return nil
}

func (s *fakeEventStatusStore) Get(ctx context.Context, userID, eventID int64) (eventstatus.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[[2]int64{userID, eventID}], nil
}

func (s *fakeEventStatusStore) EventsAwaitingReview(ctx context.Context, userID int64, page, limit int) ([]events.Event, error) {
	s.mu.Lock()
	statuses := make(map[int64]eventstatus.Status)
	for key, status := range s.statuses {
		if key[0] == userID {
			statuses[key[1]] = status
		}
	}
	s.mu.Unlock()

	var out []events.Event
	for eventID, status := range statuses {
		if status != eventstatus.WantToGo && status != eventstatus.Went {
			continue
		}
		if s.reviews.hasReview(ctx, userID, eventID) {
			continue
		}
		if e, err := s.events.GetByID(ctx, eventID); err == nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakePushTokensStore struct{}

func (fakePushTokensStore) AddOrUpdatePushToken(ctx context.Context, userID int64, token string, deviceInfo json.RawMessage) error {
	return nil
}

func (fakePushTokensStore) RemovePushToken(ctx context.Context, userID int64, token string) error {
	return nil
}

func (fakePushTokensStore) GetTokensByUserIDs(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	return map[int64][]string{}, nil
}

func (fakePushTokensStore) PruneStaleTokens(ctx context.Context, olderThan time.Duration) error {
	return nil
}

type fakeProfilesStore struct {
	mu   sync.Mutex
	byID map[int64]*profiles.Profile
}

func newFakeProfilesStore() *fakeProfilesStore {
	return &fakeProfilesStore{byID: map[int64]*profiles.Profile{}}
}

func (s *fakeProfilesStore) add(p *profiles.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
}

func (s *fakeProfilesStore) EnsureProfile(ctx context.Context, profile *profiles.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[profile.ID] = profile
	return nil
}

func (s *fakeProfilesStore) GetByID(ctx context.Context, userID int64) (*profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[userID]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeProfilesStore) GetByEmail(ctx context.Context, email string) (*profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, profiles.ErrNotFound
}

func (s *fakeProfilesStore) SetTier(ctx context.Context, userID int64, tier profiles.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[userID]
	if !ok {
		return profiles.ErrNotFound
	}
	p.Tier = tier
	return nil
}

func (s *fakeProfilesStore) SetActivationToken(ctx context.Context, userID int64, hashedToken string, exp time.Duration) error {
	return nil
}

func (s *fakeProfilesStore) Activate(ctx context.Context, hashedToken string) error { return nil }

func (s *fakeProfilesStore) Delete(ctx context.Context, userID int64) error { return nil }

func (s *fakeProfilesStore) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	return nil
}

func (s *fakeProfilesStore) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	return "", nil
}

func (s *fakeProfilesStore) DeleteRefreshToken(ctx context.Context, userID int64) error { return nil }

type fakeAggregateCache struct {
	mu   sync.Mutex
	byID map[int64]*events.Aggregate
}

func newFakeAggregateCache() *fakeAggregateCache {
	return &fakeAggregateCache{byID: map[int64]*events.Aggregate{}}
}

func (c *fakeAggregateCache) Get(ctx context.Context, eventID int64) (*events.Aggregate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	agg, ok := c.byID[eventID]
	if !ok {
		return nil, nil
	}
	cp := *agg
	return &cp, nil
}

func (c *fakeAggregateCache) Set(ctx context.Context, agg *events.Aggregate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *agg
	c.byID[agg.EventID] = &cp
	return nil
}

func (c *fakeAggregateCache) Delete(ctx context.Context, eventID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, eventID)
	return nil
}

type testEnv struct {
	app      *application
	reviews  *fakeReviewsStore
	events   *fakeEventsStore
	statuses *fakeEventStatusStore
	profiles *fakeProfilesStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rv := newFakeReviewsStore()
	ev := newFakeEventsStore()
	st := newFakeEventStatusStore(ev, rv)
	pr := newFakeProfilesStore()

	app := &application{
		config: config{
			moderation: moderationConfig{
				autoPublishScore: 85,
				flagScore:        60,
				freeTierLimit:    3,
				quotaWindow:      time.Hour * 24 * 30,
			},
		},
		logger: zap.NewNop().Sugar(),
		store: &storage.Container{
			Profiles:      pr,
			Reviews:       rv,
			Events:        ev,
			EventStatuses: st,
			PushTokens:    fakePushTokensStore{},
		},
		cacheStorage: cache.Storage{Aggregates: newFakeAggregateCache()},
		scorer:       trust.NewScorer(60),
	}

	return &testEnv{app: app, reviews: rv, events: ev, statuses: st, profiles: pr}
}

func (e *testEnv) addEvent(id int64, name, category string) {
	e.events.add(&events.Event{
		ID:       id,
		Name:     name,
		Slug:     name,
		Category: &category,
		Status:   events.StatusPast,
	})
}

func sponsorProfile(id int64, tier profiles.Tier) *profiles.Profile {
	linkedIn := "https://linkedin.com/in/sponsor"
	return &profiles.Profile{
		ID:          id,
		Email:       "sponsor@example.com",
		FullName:    "Test Sponsor",
		Role:        profiles.RoleSponsor,
		LinkedInURL: &linkedIn,
		Tier:        tier,
		IsActive:    true,
		CreatedAt:   time.Now().Add(-90 * 24 * time.Hour),
	}
}

func moderatorProfile(id int64) *profiles.Profile {
	p := sponsorProfile(id, profiles.TierPro)
	p.Role = profiles.RoleModerator
	return p
}

// requestWith builds a request carrying the authenticated profile and the
// given chi URL params, mirroring what the router and middleware set up.
func requestWith(r *http.Request, user *profiles.Profile, params map[string]string) *http.Request {
	ctx := r.Context()
	if user != nil {
		ctx = context.WithValue(ctx, userCtx, user)
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	return r.WithContext(ctx)
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decoding response envelope: %v", err)
	}
	return envelope.Data
}
