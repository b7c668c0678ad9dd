package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeLength - длина одноразового кода.
const CodeLength = 6

// redisOpTimeout - таймаут одной операции с Redis.
const redisOpTimeout = 2 * time.Second

// GenerateCode создаёт числовой код из crypto/rand.
func GenerateCode() (string, error) {
	digits := make([]byte, CodeLength)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}

type codeEntry struct {
	code      string
	expiresAt time.Time
}

// CodeStore хранит одноразовые коды с TTL.
// Основное хранилище - Redis (если задан), при его ошибке - память процесса.
type CodeStore struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu  sync.Mutex
	mem map[string]codeEntry
	now func() time.Time
}

// NewCodeStore создаёт хранилище кодов. rdb == nil - только память.
func NewCodeStore(rdb *redis.Client, logger *slog.Logger) *CodeStore {
	return &CodeStore{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "code_store")),
		mem:    make(map[string]codeEntry),
		now:    time.Now,
	}
}

func codeKey(purpose, email string) string {
	return "drive:code:" + purpose + ":" + email
}

// Save сохраняет код, заменяя предыдущий.
func (s *CodeStore) Save(ctx context.Context, purpose, email, code string, ttl time.Duration) {
	key := codeKey(purpose, email)
	if s.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		err := s.rdb.Set(rctx, key, code, ttl).Err()
		if err == nil {
			return
		}
		s.logger.Warn("Redis недоступен, код сохранён в памяти",
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	s.mem[key] = codeEntry{code: code, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Consume проверяет код и удаляет его при совпадении.
// Неверный код не удаляет сохранённый.
func (s *CodeStore) Consume(ctx context.Context, purpose, email, code string) bool {
	key := codeKey(purpose, email)
	if s.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
		defer cancel()
		stored, err := s.rdb.Get(rctx, key).Result()
		switch {
		case err == nil:
			if !equalCodes(stored, code) {
				return false
			}
			// Del вернёт 1 только одному из конкурирующих вызовов.
			n, err := s.rdb.Del(rctx, key).Result()
			return err == nil && n == 1
		case errors.Is(err, redis.Nil):
			// Код мог быть сохранён в памяти при недоступности Redis.
		default:
			s.logger.Warn("Ошибка чтения кода из Redis",
				slog.String("error", err.Error()),
			)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.mem[key]
	if !ok {
		return false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.mem, key)
		return false
	}
	if !equalCodes(entry.code, code) {
		return false
	}
	delete(s.mem, key)
	return true
}

func equalCodes(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
