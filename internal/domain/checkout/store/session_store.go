package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gamevault/internal/domain/checkout/model"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("checkout state not found")

// SessionStore 结账会话的临时状态，键带 TTL
type SessionStore interface {
	LoadDraft(ctx context.Context, sid string) (*model.Draft, error)
	SaveDraft(ctx context.Context, sid string, d *model.Draft) error
	ClearDraft(ctx context.Context, sid string) error
	LoadPending(ctx context.Context, sid string) (*model.PendingPayment, error)
	SavePending(ctx context.Context, sid string, p *model.PendingPayment) error
	// Clear 同时删除草稿与待支付
	Clear(ctx context.Context, sid string) error
}

// PreferenceStore 长期保存的按游戏偏好，不过期
type PreferenceStore interface {
	LoadPreference(ctx context.Context, owner, gameKey string) (model.Preference, error)
	SavePreference(ctx context.Context, owner, gameKey string, p model.Preference) error
}

// RedisStore 同时实现 SessionStore 与 PreferenceStore
type RedisStore struct {
	client *redis.Client
	// retention 二维码过期后待支付记录继续保留的时长，重新打开页面时仍能显示已过期
	retention time.Duration
	now       func() time.Time
}

func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention, now: time.Now}
}

func draftKey(sid string) string {
	return "checkout:session:" + sid + ":draft"
}

func pendingKey(sid string) string {
	return "checkout:session:" + sid + ":pending"
}

func prefsKey(owner, gameKey string) string {
	return "checkout:prefs:" + owner + ":" + gameKey
}

func (s *RedisStore) LoadDraft(ctx context.Context, sid string) (*model.Draft, error) {
	var d model.Draft
	if err := s.getJSON(ctx, draftKey(sid), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// SaveDraft TTL 与草稿硬过期时间一致，已过期的草稿直接删除
func (s *RedisStore) SaveDraft(ctx context.Context, sid string, d *model.Draft) error {
	ttl := d.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.ClearDraft(ctx, sid)
	}
	return s.setJSON(ctx, draftKey(sid), d, ttl)
}

func (s *RedisStore) ClearDraft(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, draftKey(sid)).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadPending(ctx context.Context, sid string) (*model.PendingPayment, error) {
	var p model.PendingPayment
	if err := s.getJSON(ctx, pendingKey(sid), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePending TTL 为二维码剩余时间加保留时长
func (s *RedisStore) SavePending(ctx context.Context, sid string, p *model.PendingPayment) error {
	ttl := p.ExpiresAt.Sub(s.now()) + s.retention
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.setJSON(ctx, pendingKey(sid), p, ttl)
}

func (s *RedisStore) Clear(ctx context.Context, sid string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, draftKey(sid))
	pipe.Del(ctx, pendingKey(sid))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadPreference(ctx context.Context, owner, gameKey string) (model.Preference, error) {
	vals, err := s.client.HGetAll(ctx, prefsKey(owner, gameKey)).Result()
	if err != nil {
		return model.Preference{}, fmt.Errorf("load preference: %w", err)
	}
	return model.Preference{
		UID:        vals["uid"],
		Server:     vals["server"],
		ServerName: vals["server_name"],
	}, nil
}

// SavePreference 空字段不覆盖已有记录
func (s *RedisStore) SavePreference(ctx context.Context, owner, gameKey string, p model.Preference) error {
	fields := make(map[string]interface{}, 3)
	if p.UID != "" {
		fields["uid"] = p.UID
	}
	if p.Server != "" {
		fields["server"] = p.Server
		fields["server_name"] = p.ServerName
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, prefsKey(owner, gameKey), fields).Err(); err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		// 损坏的数据按不存在处理，并清理掉
		_ = s.client.Del(ctx, key).Err()
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
