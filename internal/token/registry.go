// Package token keeps the directory of delivery tokens registered per
// contact identity. It backs the customer-notification fallback: when an
// order carries no pinned token, every token registered for the order's
// contact gets the push.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Directory interface {
	// Register stores a token for an owner identity. Registering the same
	// token twice is a no-op on the second call.
	Register(ctx context.Context, token, owner string) error
	// TokensFor returns the de-duplicated set of tokens registered for an
	// owner identity. An unknown owner yields an empty set, not an error.
	TokensFor(ctx context.Context, owner string) ([]string, error)
}

type PGDirectory struct{ db *pgxpool.Pool }

func NewPGDirectory(db *pgxpool.Pool) *PGDirectory { return &PGDirectory{db: db} }

func (d *PGDirectory) Register(ctx context.Context, token, owner string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.db.Exec(ctx, `
		INSERT INTO device_tokens (token, owner_id, created_at)
		VALUES ($1,$2,NOW())
		ON CONFLICT (token) DO UPDATE SET owner_id = EXCLUDED.owner_id
	`, token, owner)
	return err
}

func (d *PGDirectory) TokensFor(ctx context.Context, owner string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := d.db.Query(ctx, `SELECT token FROM device_tokens WHERE owner_id=$1`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RedisDirectory keeps the token sets in Redis, one set per owner identity.
// Set semantics give de-duplication for free.
type RedisDirectory struct {
	client *redis.Client
	prefix string
}

func NewRedisDirectory(addr, prefix string) *RedisDirectory {
	return &RedisDirectory{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (d *RedisDirectory) Register(ctx context.Context, token, owner string) error {
	return d.client.SAdd(ctx, d.key(owner), token).Err()
}

func (d *RedisDirectory) TokensFor(ctx context.Context, owner string) ([]string, error) {
	tokens, err := d.client.SMembers(ctx, d.key(owner)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return tokens, err
}

func (d *RedisDirectory) key(owner string) string {
	return fmt.Sprintf("%s:tokens:%s", d.prefix, owner)
}
