package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/op-quiz-backend/internal/player"
)

const DefaultRedisKey = "room:main-room:players"

// Redis keeps players as JSON values in a single hash keyed by player id.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisFromClient(client, DefaultRedisKey), nil
}

func NewRedisFromClient(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) ReadAll(ctx context.Context) ([]player.Player, error) {
	data, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}

	players := make([]player.Player, 0, len(data))
	for id, raw := range data {
		var p player.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", id, err)
		}
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b player.Player) int { return strings.Compare(a.ID, b.ID) })
	return players, nil
}

// WriteAll swaps the hash contents inside one MULTI/EXEC.
func (r *Redis) WriteAll(ctx context.Context, players []player.Player) error {
	fields := make([]any, 0, len(players)*2)
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		fields = append(fields, p.ID, data)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, r.key, fields...)
		}
		return nil
	})
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}
