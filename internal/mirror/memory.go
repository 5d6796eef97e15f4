package mirror

import (
	"context"
	"sync"
)

// Memory is an in-process Client.  It backs the "memory" mirror driver
// for local development and lets tests inject failures per key.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]Document
	failKeys map[string]error
	failAll  error
	calls    int
}

// NewMemory returns an empty in-memory mirror.
func NewMemory() *Memory {
	return &Memory{docs: map[string]Document{}, failKeys: map[string]error{}}
}

// FailKey makes every call touching key return err until cleared with a
// nil err.
func (m *Memory) FailKey(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failKeys, key)
		return
	}
	m.failKeys[key] = err
}

// FailAll makes every call return err; nil restores normal behaviour.
func (m *Memory) FailAll(err error) {
	m.mu.Lock()
	m.failAll = err
	m.mu.Unlock()
}

// Calls reports how many operations reached the mirror.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) check(key string) error {
	m.calls++
	if m.failAll != nil {
		return m.failAll
	}
	return m.failKeys[key]
}

func (m *Memory) Put(ctx context.Context, key string, doc Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return err
	}
	if merge {
		m.docs[key] = mergeInto(copyDoc(m.docs[key]), doc)
		return nil
	}
	m.docs[key] = copyDoc(doc)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return nil, err
	}
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(key); err != nil {
		return err
	}
	delete(m.docs, key)
	return nil
}

func (m *Memory) List(ctx context.Context) (map[string]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(""); err != nil {
		return nil, err
	}
	out := make(map[string]Document, len(m.docs))
	for k, v := range m.docs {
		out[k] = copyDoc(v)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func copyDoc(d Document) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
