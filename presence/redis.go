package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	keyPrefix = "presence:user:"
	onlineSet = "presence:online"
)

// Redis keeps one expiring key per online user and a sorted set scored by
// expiry time for counting.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, ttl: TTL}
}

// Open connects to addr and pings it.
func Open(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *Redis) SetOnline(ctx context.Context, userID primitive.ObjectID) error {
	exp := time.Now().Add(r.ttl)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, keyPrefix+userID.Hex(), exp.Unix(), r.ttl)
	pipe.ZAdd(ctx, onlineSet, redis.Z{Score: float64(exp.Unix()), Member: userID.Hex()})
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) SetOffline(ctx context.Context, userID primitive.ObjectID) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, keyPrefix+userID.Hex())
	pipe.ZRem(ctx, onlineSet, userID.Hex())
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) IsOnline(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+userID.Hex()).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) OnlineCount(ctx context.Context) (int64, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := r.rdb.ZRemRangeByScore(ctx, onlineSet, "-inf", "("+now).Err(); err != nil {
		return 0, err
	}
	return r.rdb.ZCard(ctx, onlineSet).Result()
}
