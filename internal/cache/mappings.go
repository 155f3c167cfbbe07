// Package cache maintains derived indexes of the equipment catalog in
// Redis. Every entry can be rebuilt from the catalog store, so the cache
// is invalidated wholesale after any catalog write.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/lab-scheduler/backend/internal/catalog"
)

const (
	keyPrefix       = "catalog:"
	hierarchyKey    = keyPrefix + "hierarchy"
	equipmentPrefix = keyPrefix + "equipment:name:"
)

// Hierarchy is the laboratory > equipment type > equipment tree served to
// browsing clients.
type Hierarchy struct {
	Laboratories []LaboratoryNode `json:"laboratories"`
}

type LaboratoryNode struct {
	Laboratory catalog.Laboratory `json:"laboratory"`
	Types      []TypeNode         `json:"types"`
}

type TypeNode struct {
	Type      catalog.EquipmentType `json:"type"`
	Equipment []catalog.Equipment   `json:"equipment"`
}

// Mappings is the read-through cache over the catalog store. It
// implements catalog.Invalidator.
type Mappings struct {
	rdb   *redis.Client
	store catalog.Store
	ttl   time.Duration
	log   *zap.Logger
}

func NewMappings(rdb *redis.Client, store catalog.Store, ttl time.Duration, log *zap.Logger) *Mappings {
	return &Mappings{rdb: rdb, store: store, ttl: ttl, log: log}
}

// Hierarchy returns the catalog tree, serving from Redis when possible
// and rebuilding from the store on a miss.
func (m *Mappings) Hierarchy(ctx context.Context) (*Hierarchy, error) {
	cached, err := m.rdb.Get(ctx, hierarchyKey).Result()
	if err == nil {
		var h Hierarchy
		if err := json.Unmarshal([]byte(cached), &h); err == nil {
			return &h, nil
		}
		// A corrupt entry falls through to a rebuild.
		m.log.Warn("discarding unreadable cached hierarchy")
	} else if err != redis.Nil {
		m.log.Warn("hierarchy cache read failed", zap.Error(err))
	}

	h, err := m.buildHierarchy(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(h); err == nil {
		if err := m.rdb.Set(ctx, hierarchyKey, data, m.ttl).Err(); err != nil {
			m.log.Warn("hierarchy cache write failed", zap.Error(err))
		}
	}

	return h, nil
}

// EquipmentName resolves an equipment id to its display name through the
// cache.
func (m *Mappings) EquipmentName(ctx context.Context, id string) (string, error) {
	key := equipmentPrefix + id

	name, err := m.rdb.Get(ctx, key).Result()
	if err == nil {
		return name, nil
	}
	if err != redis.Nil {
		m.log.Warn("equipment name cache read failed", zap.Error(err))
	}

	eq, err := m.store.GetEquipment(ctx, id)
	if err != nil {
		return "", err
	}

	if err := m.rdb.Set(ctx, key, eq.Name, m.ttl).Err(); err != nil {
		m.log.Warn("equipment name cache write failed", zap.Error(err))
	}

	return eq.Name, nil
}

// Invalidate drops every derived catalog index. Called after any catalog
// write; a failure only costs one rebuild per reader.
func (m *Mappings) Invalidate(ctx context.Context) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := m.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			m.log.Warn("cache invalidation scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := m.rdb.Del(ctx, keys...).Err(); err != nil {
				m.log.Warn("cache invalidation delete failed", zap.Error(err))
				return
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	m.log.Debug("catalog cache invalidated", zap.Int("keys", deleted))
}

func (m *Mappings) buildHierarchy(ctx context.Context) (*Hierarchy, error) {
	labs, err := m.store.ListLaboratories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing laboratories: %w", err)
	}
	types, err := m.store.ListEquipmentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing equipment types: %w", err)
	}
	equipment, err := m.store.ListEquipment(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("listing equipment: %w", err)
	}

	byLabAndType := make(map[string]map[string][]catalog.Equipment)
	for _, eq := range equipment {
		if byLabAndType[eq.LaboratoryID] == nil {
			byLabAndType[eq.LaboratoryID] = make(map[string][]catalog.Equipment)
		}
		byLabAndType[eq.LaboratoryID][eq.EquipmentTypeID] = append(
			byLabAndType[eq.LaboratoryID][eq.EquipmentTypeID], eq)
	}

	h := &Hierarchy{}
	for _, lab := range labs {
		node := LaboratoryNode{Laboratory: lab}
		for _, et := range types {
			items := byLabAndType[lab.ID][et.ID]
			if len(items) == 0 {
				continue
			}
			node.Types = append(node.Types, TypeNode{Type: et, Equipment: items})
		}
		h.Laboratories = append(h.Laboratories, node)
	}

	return h, nil
}
