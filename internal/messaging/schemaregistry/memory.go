package schemaregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/hamba/avro/v2"

	"wires/pkg/platform/sentinel"
)

// Memory is an in-process schema store for tests and offline decoding.
type Memory struct {
	mu      sync.RWMutex
	schemas map[int]avro.Schema
	next    int
}

func NewMemory() *Memory {
	return &Memory{schemas: make(map[int]avro.Schema), next: 1}
}

// Register parses schema and stores it under the next free id.
func (m *Memory) Register(schema string) (int, error) {
	parsed, err := avro.ParseWithCache(schema, "", &avro.SchemaCache{})
	if err != nil {
		return 0, fmt.Errorf("parse schema: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.schemas[id] = parsed
	return id, nil
}

// Add stores schema under a fixed id.
func (m *Memory) Add(id int, schema avro.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[id] = schema
	if id >= m.next {
		m.next = id + 1
	}
}

func (m *Memory) Schema(_ context.Context, id int) (avro.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schema, ok := m.schemas[id]
	if !ok {
		return nil, fmt.Errorf("schema %d: %w", id, sentinel.ErrNotFound)
	}
	return schema, nil
}
