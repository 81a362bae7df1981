package shipping

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/onlinestore/fulfillment/internal/model"
)

// Store persists shipments. The shipping service runs as its own deployment
// and keeps its records in Redis rather than sharing the relational store.
type Store interface {
	Save(ctx context.Context, shipment model.Shipment) error
	Get(ctx context.Context, id string) (model.Shipment, error)
}

const keyPrefix = "shipping:"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	log.Printf("Connecting to Redis at %s", addr)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		return nil, err
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Save(ctx context.Context, shipment model.Shipment) error {
	b, err := json.Marshal(shipment)
	if err != nil {
		return err
	}
	err = s.rdb.Set(ctx, keyPrefix+shipment.ID, b, 0).Err()
	if err != nil {
		log.Printf("Redis SET error for shipment %s: %v", shipment.ID, err)
	}
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Shipment, error) {
	b, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return model.Shipment{}, &model.NotFoundError{Resource: "shipment", ID: id}
	} else if err != nil {
		log.Printf("Redis GET error for shipment %s: %v", id, err)
		return model.Shipment{}, err
	}
	var shipment model.Shipment
	err = json.Unmarshal(b, &shipment)
	return shipment, err
}

func (s *RedisStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

// MemoryStore is the in-memory Store used by tests.
type MemoryStore struct {
	mu        sync.RWMutex
	shipments map[string]model.Shipment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shipments: make(map[string]model.Shipment)}
}

func (s *MemoryStore) Save(_ context.Context, shipment model.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[shipment.ID] = shipment
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shipment, ok := s.shipments[id]
	if !ok {
		return model.Shipment{}, &model.NotFoundError{Resource: "shipment", ID: id}
	}
	return shipment, nil
}

// All returns every stored shipment; it only exists for tests.
func (s *MemoryStore) All() []model.Shipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Shipment, 0, len(s.shipments))
	for _, shipment := range s.shipments {
		res = append(res, shipment)
	}
	return res
}
