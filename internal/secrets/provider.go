package secrets

import (
	"context"
	"fmt"
	"os"
)

// Provider разрешает credential по ссылке.
//
// Ссылка — имя секрета у провайдера (например, имя переменной окружения),
// а не само значение: конфигурация проектов не содержит токенов.
type Provider interface {
	Resolve(ctx context.Context, ref string) (*Credential, error)
}

// EnvProvider — провайдер из переменных окружения процесса.
//
// Стандартный способ инъекции секрета из внешнего secret store
// (CI-окружение кладёт токен в env, relman читает и сразу владеет копией).
type EnvProvider struct{}

// NewEnvProvider создаёт EnvProvider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Resolve читает секрет из окружения.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (*Credential, error) {
	if ref == "" {
		return nil, ErrEmptyRef
	}

	value, ok := os.LookupEnv(ref)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}

	return New(value), nil
}

// StaticProvider — провайдер с фиксированным набором секретов.
// Используется в тестах вместо реального окружения.
type StaticProvider struct {
	values map[string]string
}

// NewStaticProvider создаёт StaticProvider.
func NewStaticProvider(values map[string]string) *StaticProvider {
	if values == nil {
		values = make(map[string]string)
	}
	return &StaticProvider{values: values}
}

// Resolve возвращает секрет из набора.
func (p *StaticProvider) Resolve(_ context.Context, ref string) (*Credential, error) {
	if ref == "" {
		return nil, ErrEmptyRef
	}

	value, ok := p.values[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	return New(value), nil
}
