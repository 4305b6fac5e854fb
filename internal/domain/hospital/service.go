package hospital

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/cache"
	"github.com/healthbridge/healthbridge/internal/platform/geo"
)

const (
	directoryKey      = "hospitals:all"
	versionKey        = "hospitals:version"
	versionTTL        = 24 * time.Hour
	defaultCacheTTL   = 5 * time.Minute
	msgFieldsRequired = "All fields are required"
)

type Service struct {
	markers  MarkerRepository
	accounts AccountRepository
	tokens   *auth.TokenIssuer
	cache    cache.Store
	logger   zerolog.Logger

	tokenTTL time.Duration
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService wires the hospital directory. tokenTTL is the lifetime of
// hospital account credentials.
func NewService(markers MarkerRepository, accounts AccountRepository, tokens *auth.TokenIssuer, store cache.Store, logger zerolog.Logger, tokenTTL time.Duration) *Service {
	return &Service{
		markers:  markers,
		accounts: accounts,
		tokens:   tokens,
		cache:    store,
		logger:   logger,
		tokenTTL: tokenTTL,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
	}
}

// point validates a latitude and longitude pair from a request.
func point(lat, lng float64) (geo.Point, error) {
	p, err := geo.NewPoint(lat, lng)
	if err != nil {
		return geo.Point{}, apierror.BadRequest("Invalid coordinates: " + err.Error())
	}
	return p, nil
}

// AddMarker stores a hospital pin added by a signed-in user.
func (s *Service) AddMarker(ctx context.Context, caller primitive.ObjectID, in MarkerInput) (*Hospital, error) {
	if in.Name == "" || in.Latitude == nil || in.Longitude == nil {
		return nil, apierror.BadRequest(msgFieldsRequired)
	}
	loc, err := point(*in.Latitude, *in.Longitude)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	h := &Hospital{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Location:  loc,
		AddedBy:   caller,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.markers.Create(ctx, h); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return h, nil
}

// Directory lists every marker followed by every account, served from the
// cache when possible. Cached copies are keyed by the directory version, so
// a fill that raced with a write is stored under a version nobody reads.
func (s *Service) Directory(ctx context.Context) ([]Listing, error) {
	key := s.versionedKey(ctx)
	return cache.Load(ctx, s.cache, key, s.cacheTTL, s.loadDirectory, func(err error) {
		s.logger.Warn().Err(err).Str("key", key).Msg("hospital directory cache")
	})
}

func (s *Service) versionedKey(ctx context.Context) string {
	v, ok, err := s.cache.Get(ctx, versionKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", versionKey).Msg("hospital directory version")
	}
	if !ok || err != nil {
		return directoryKey
	}
	return directoryKey + ":" + string(v)
}

func (s *Service) loadDirectory(ctx context.Context) ([]Listing, error) {
	markers, err := s.markers.List(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Listing, 0, len(markers)+len(accounts))
	for _, m := range markers {
		out = append(out, Listing{Marker: m})
	}
	for _, a := range accounts {
		out = append(out, Listing{Account: listingOf(a)})
	}
	return out, nil
}

// invalidate moves the directory to a new version. Copies cached under the
// old one expire on their own.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Set(ctx, versionKey, []byte(uuid.NewString()), versionTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", versionKey).Msg("hospital directory invalidation failed")
	}
}
