package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/neomorfeo/talladmin/internal/domain"
)

var _ domain.TenantRepository = (*CachingRepository)(nil)

const tenantKeyPrefix = "tenant:"

// CachingRepository is a cache-aside decorator for tenant reads by ID.
// Writes go to the wrapped repository and invalidate the cached entry.
// Cache errors never fail a call; the wrapped repository is authoritative.
type CachingRepository struct {
	next domain.TenantRepository
	rdb  *goredis.Client
	ttl  time.Duration
}

// NewCachingRepository wraps next with a Redis cache of the given TTL.
func NewCachingRepository(next domain.TenantRepository, rdb *goredis.Client, ttl time.Duration) *CachingRepository {
	return &CachingRepository{next: next, rdb: rdb, ttl: ttl}
}

func tenantKey(id string) string { return tenantKeyPrefix + id }

func (r *CachingRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	if err := r.next.Create(ctx, tenant); err != nil {
		return err
	}
	r.invalidate(ctx, tenant.ID)
	return nil
}

func (r *CachingRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	key := tenantKey(id)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tenant domain.Tenant
		if jsonErr := json.Unmarshal(cached, &tenant); jsonErr == nil {
			return tenant, nil
		}
	case !errors.Is(err, goredis.Nil):
		log.Warn().Err(err).Str("tenant_id", id).Msg("tenant cache read failed")
	}

	tenant, err := r.next.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if data, err := json.Marshal(tenant); err == nil {
		if err := r.rdb.SetEx(ctx, key, data, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("tenant_id", id).Msg("tenant cache write failed")
		}
	}
	return tenant, nil
}

func (r *CachingRepository) GetByDomain(ctx context.Context, d string) (domain.Tenant, error) {
	return r.next.GetByDomain(ctx, d)
}

func (r *CachingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	return r.next.List(ctx, filter)
}

func (r *CachingRepository) SetStatus(ctx context.Context, id string, change domain.StatusChange) error {
	err := r.next.SetStatus(ctx, id, change)
	// A conflict means the cached copy is stale too.
	r.invalidate(ctx, id)
	return err
}

func (r *CachingRepository) History(ctx context.Context, id string) ([]domain.StatusChange, error) {
	return r.next.History(ctx, id)
}

func (r *CachingRepository) invalidate(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, tenantKey(id)).Err(); err != nil {
		log.Warn().Err(err).Str("tenant_id", id).Msg("tenant cache invalidation failed")
	}
}
