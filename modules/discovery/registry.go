package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/autowire/core"
)

// Instance is one registered application instance.
type Instance struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Health   core.HealthStatus `json:"health"`
	LastSeen time.Time         `json:"last_seen"`
}

// Filter selects instances. Empty fields match everything; Tags must all
// be carried by an instance.
type Filter struct {
	Name     string
	Tags     []string
	Metadata map[string]string
}

// HeartbeatStats counts heartbeat outcomes for one instance.
type HeartbeatStats struct {
	SuccessCount int64
	FailureCount int64
	Recoveries   int64
	LastSuccess  time.Time
	LastFailure  time.Time
}

var errInstanceNotFound = errors.New("instance not registered")

// Registry stores instances in Redis. Each instance is a key with a TTL;
// name and tag index sets expire at twice the TTL and are refreshed on
// every heartbeat.
type Registry struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    core.Logger

	mu         sync.RWMutex
	registered map[string]*Instance
	stats      map[string]*HeartbeatStats
}

// NewRegistry wraps an existing client.
func NewRegistry(client *redis.Client, namespace string, ttl time.Duration, logger core.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		client:     client,
		namespace:  namespace,
		ttl:        ttl,
		logger:     core.LoggerOrNoOp(logger),
		registered: make(map[string]*Instance),
		stats:      make(map[string]*HeartbeatStats),
	}
}

// Connect parses url, applies pool settings and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", core.ErrInvalidConfiguration)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 100 * time.Millisecond
	opt.MaxRetryBackoff = time.Second
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", core.ErrConnectionFailed)
	}
	return client, nil
}

func (r *Registry) instanceKey(id string) string { return fmt.Sprintf("%s:instances:%s", r.namespace, id) }
func (r *Registry) nameKey(name string) string { return fmt.Sprintf("%s:names:%s", r.namespace, name) }
func (r *Registry) tagKey(tag string) string   { return fmt.Sprintf("%s:tags:%s", r.namespace, tag) }

// TTL returns the instance key lifetime.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Register stores inst and adds it to the name and tag indexes in one
// transaction. The registration is remembered so a heartbeat can restore it
// after the key expired.
func (r *Registry) Register(ctx context.Context, inst *Instance) error {
	if inst.ID == "" || inst.Name == "" {
		return fmt.Errorf("instance id and name are required: %w", core.ErrInvalidConfiguration)
	}
	if inst.Health == "" {
		inst.Health = core.HealthHealthy
	}
	inst.LastSeen = time.Now()

	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.instanceKey(inst.ID), data, r.ttl)
	pipe.SAdd(ctx, r.nameKey(inst.Name), inst.ID)
	pipe.Expire(ctx, r.nameKey(inst.Name), r.ttl*2)
	for _, tag := range inst.Tags {
		pipe.SAdd(ctx, r.tagKey(tag), inst.ID)
		pipe.Expire(ctx, r.tagKey(tag), r.ttl*2)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to register instance", map[string]interface{}{
			"instance_id": inst.ID,
			"name":        inst.Name,
			"error":       err.Error(),
		})
		return fmt.Errorf("failed to register instance %s: %w", inst.ID, err)
	}

	copied := *inst
	r.mu.Lock()
	r.registered[inst.ID] = &copied
	if r.stats[inst.ID] == nil {
		r.stats[inst.ID] = &HeartbeatStats{}
	}
	r.mu.Unlock()

	r.logger.Info("Registered instance", map[string]interface{}{
		"instance_id": inst.ID,
		"name":        inst.Name,
		"host":        inst.Host,
		"port":        inst.Port,
		"ttl":         r.ttl.String(),
	})
	return nil
}

// UpdateHealth rewrites the stored status and extends the key lifetime.
func (r *Registry) UpdateHealth(ctx context.Context, id string, status core.HealthStatus) error {
	data, err := r.client.Get(ctx, r.instanceKey(id)).Result()
	if err == redis.Nil {
		return fmt.Errorf("instance %s: %w", id, errInstanceNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read instance %s: %w", id, err)
	}

	var inst Instance
	if err := json.Unmarshal([]byte(data), &inst); err != nil {
		return fmt.Errorf("failed to unmarshal instance %s: %w", id, err)
	}
	inst.Health = status
	inst.LastSeen = time.Now()

	updated, err := json.Marshal(&inst)
	if err != nil {
		return fmt.Errorf("failed to marshal instance %s: %w", id, err)
	}
	if err := r.client.Set(ctx, r.instanceKey(id), updated, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update instance %s: %w", id, err)
	}
	r.refreshIndexes(ctx, &inst)
	return nil
}

// refreshIndexes keeps index sets alive as long as their instances are.
func (r *Registry) refreshIndexes(ctx context.Context, inst *Instance) {
	keys := []string{r.nameKey(inst.Name)}
	for _, tag := range inst.Tags {
		keys = append(keys, r.tagKey(tag))
	}
	for _, key := range keys {
		if err := r.client.Expire(ctx, key, r.ttl*2).Err(); err != nil {
			r.logger.Debug("Failed to refresh index TTL", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

// Heartbeat refreshes id. When the key has expired, for example after a
// Redis restart, the remembered registration is written again.
func (r *Registry) Heartbeat(ctx context.Context, id string) error {
	err := r.UpdateHealth(ctx, id, core.HealthHealthy)

	r.mu.Lock()
	stats := r.stats[id]
	if stats == nil {
		stats = &HeartbeatStats{}
		r.stats[id] = stats
	}
	if err == nil {
		stats.SuccessCount++
		stats.LastSuccess = time.Now()
	} else {
		stats.FailureCount++
		stats.LastFailure = time.Now()
	}
	inst := r.registered[id]
	r.mu.Unlock()

	if err == nil || !errors.Is(err, errInstanceNotFound) || inst == nil {
		return err
	}

	restored := *inst
	if regErr := r.Register(ctx, &restored); regErr != nil {
		return fmt.Errorf("failed to restore registration: %w", regErr)
	}
	r.mu.Lock()
	stats.Recoveries++
	r.mu.Unlock()
	r.logger.Info("Restored expired registration", map[string]interface{}{
		"instance_id": id,
	})
	return nil
}

// Stats returns a copy of the heartbeat counters for id.
func (r *Registry) Stats(id string) HeartbeatStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.stats[id]; s != nil {
		return *s
	}
	return HeartbeatStats{}
}

// Deregister removes id and its index entries.
func (r *Registry) Deregister(ctx context.Context, id string) error {
	data, err := r.client.Get(ctx, r.instanceKey(id)).Result()
	if err != nil && err != redis.Nil {
		r.logger.Warn("Failed to read instance for deregistration", map[string]interface{}{
			"instance_id": id,
			"error":       err.Error(),
		})
	}

	pipe := r.client.TxPipeline()
	if err == nil {
		var inst Instance
		if json.Unmarshal([]byte(data), &inst) == nil {
			pipe.SRem(ctx, r.nameKey(inst.Name), id)
			for _, tag := range inst.Tags {
				pipe.SRem(ctx, r.tagKey(tag), id)
			}
		}
	}
	pipe.Del(ctx, r.instanceKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to deregister instance %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.registered, id)
	stats := r.stats[id]
	delete(r.stats, id)
	r.mu.Unlock()

	fields := map[string]interface{}{"instance_id": id}
	if stats != nil {
		fields["heartbeats"] = stats.SuccessCount
		fields["heartbeat_failures"] = stats.FailureCount
	}
	r.logger.Info("Deregistered instance", fields)
	return nil
}

// Discover returns the live instances matching filter, sorted by ID.
func (r *Registry) Discover(ctx context.Context, filter Filter) ([]*Instance, error) {
	ids, err := r.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	var out []*Instance
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.instanceKey(id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read instance %s: %w", id, err)
		}
		var inst Instance
		if err := json.Unmarshal([]byte(data), &inst); err != nil {
			continue
		}
		if !matchesMetadata(inst.Metadata, filter.Metadata) {
			continue
		}
		out = append(out, &inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// candidates narrows the ID set using the index sets, falling back to a
// scan of instance keys when the filter names no index.
func (r *Registry) candidates(ctx context.Context, filter Filter) ([]string, error) {
	var sets []string
	if filter.Name != "" {
		sets = append(sets, r.nameKey(filter.Name))
	}
	for _, tag := range filter.Tags {
		sets = append(sets, r.tagKey(tag))
	}

	if len(sets) > 0 {
		ids, err := r.client.SInter(ctx, sets...).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to query discovery indexes: %w", err)
		}
		return ids, nil
	}

	prefix := fmt.Sprintf("%s:instances:", r.namespace)
	var ids []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return ids, nil
}

func matchesMetadata(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Ping checks the Redis connection.
func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Registry) Close() error {
	return r.client.Close()
}
