package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis stores each document as a JSON string under "<prefix>:<key>".
// It serves self-hosted deployments that have Redis but no Firestore.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps an existing client.  The client is owned by the caller
// unless Close is invoked.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "mirror:signalements"
	}
	return &Redis{rdb: rdb, prefix: strings.TrimRight(prefix, ":")}
}

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Put(ctx context.Context, key string, doc Document, merge bool) error {
	if !merge {
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		return r.rdb.Set(ctx, r.key(key), raw, 0).Err()
	}
	// Merge is a read-modify-write guarded by WATCH; a concurrent writer
	// makes the transaction fail with redis.TxFailedErr and the caller
	// treats it like any other remote failure.
	k := r.key(key)
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current := Document{}
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode document %s: %w", key, err)
			}
		}
		merged, err := json.Marshal(mergeInto(current, doc))
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, merged, 0)
			return nil
		})
		return err
	}, k)
}

func (r *Redis) Get(ctx context.Context, key string) (Document, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}
	return doc, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *Redis) List(ctx context.Context) (map[string]Document, error) {
	out := map[string]Document{}
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		raw, err := r.rdb.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", full, err)
		}
		out[strings.TrimPrefix(full, r.prefix+":")] = doc
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
