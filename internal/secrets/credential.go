package secrets

import (
	"errors"
	"log/slog"
	"sync"
)

// Ошибки работы с credentials.
var (
	// ErrNotFound — секрет не найден у провайдера.
	ErrNotFound = errors.New("credential not found")

	// ErrEmptyRef — пустая ссылка на секрет.
	ErrEmptyRef = errors.New("credential ref is empty")

	// ErrCleared — credential уже занулён (окно использования закрыто).
	ErrCleared = errors.New("credential already cleared")
)

// redacted — то, что видно вместо значения в логах и fmt-выводе.
const redacted = "[REDACTED]"

// Credential — непрозрачный registry-токен.
//
// Значение доступно только через Value() и только до Clear().
// Clear() зануляет память; повторный Clear безопасен.
type Credential struct {
	mu      sync.Mutex
	value   []byte
	cleared bool
}

// New создаёт Credential из значения секрета.
// Вызывающий не должен сохранять исходную строку.
func New(value string) *Credential {
	return &Credential{value: []byte(value)}
}

// Value возвращает значение токена.
// После Clear() возвращает ErrCleared.
func (c *Credential) Value() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleared {
		return "", ErrCleared
	}
	return string(c.value), nil
}

// Clear зануляет значение. Идемпотентен.
func (c *Credential) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleared {
		return
	}
	for i := range c.value {
		c.value[i] = 0
	}
	c.value = nil
	c.cleared = true
}

// IsCleared проверяет, закрыто ли окно использования.
func (c *Credential) IsCleared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

// String реализует fmt.Stringer: значение никогда не печатается.
func (c *Credential) String() string {
	return redacted
}

// LogValue реализует slog.LogValuer: в structured-логах credential
// всегда выводится как redacted, даже при случайном логировании.
func (c *Credential) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
