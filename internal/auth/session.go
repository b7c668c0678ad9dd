package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SessionCookieName - имя cookie с зашифрованной сессией.
const SessionCookieName = "drive_session"

// DefaultSessionTTL - время жизни сессии по умолчанию.
const DefaultSessionTTL = 24 * time.Hour

// SessionData - содержимое cookie сессии.
type SessionData struct {
	// Token - токен сессии провайдера
	Token string `json:"token"`
	// UserID - идентификатор пользователя
	UserID string `json:"user_id"`
	// Email - адрес пользователя
	Email string `json:"email"`
	// Username - отображаемое имя
	Username string `json:"username"`
	// ExpiresAt - истечение сессии (Unix timestamp)
	ExpiresAt int64 `json:"expires_at"`
}

// IsExpired сообщает, истекла ли сессия.
func (s *SessionData) IsExpired() bool {
	return time.Now().Unix() >= s.ExpiresAt
}

// SessionManager шифрует SessionData в HTTP-only cookie через AES-256-GCM.
type SessionManager struct {
	gcm    cipher.AEAD
	secure bool
	ttl    time.Duration
}

// NewSessionManager создаёт менеджер сессий.
// key - base64 32-байтового ключа или произвольная строка (хешируется SHA-256).
// Пустой key - случайный ключ, сессии не переживают рестарт.
func NewSessionManager(key string, secure bool, ttl time.Duration) (*SessionManager, error) {
	var keyBytes []byte
	if key == "" {
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			h := sha256.Sum256([]byte(key))
			keyBytes = h[:]
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{gcm: gcm, secure: secure, ttl: ttl}, nil
}

// TTL - время жизни сессии.
func (sm *SessionManager) TTL() time.Duration { return sm.ttl }

// Encrypt шифрует SessionData в base64-строку (nonce в начале шифротекста).
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает строку обратно в SessionData.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}
	return &data, nil
}

// SetSession записывает сессию в cookie ответа.
func (sm *SessionManager) SetSession(w http.ResponseWriter, s Session) error {
	expires := s.ExpiresAt
	if expires.IsZero() || time.Until(expires) > sm.ttl {
		expires = time.Now().Add(sm.ttl)
	}

	encrypted, err := sm.Encrypt(&SessionData{
		Token:     s.Token,
		UserID:    s.User.ID,
		Email:     s.User.Email,
		Username:  s.User.Username,
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SessionFromRequest извлекает сессию из cookie запроса.
// nil, nil - cookie нет.
func (sm *SessionManager) SessionFromRequest(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return sm.Decrypt(cookie.Value)
}

// ClearSession удаляет cookie сессии (выход).
func (sm *SessionManager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
