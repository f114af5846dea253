package domain

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidVersion — строка не является валидной semver-версией.
var ErrInvalidVersion = errors.New("invalid semantic version")

// FirstVersion — версия первого релиза, когда пакет ещё не публиковался.
const FirstVersion = "0.1.0"

// NextPatch возвращает следующую patch-версию относительно prev.
//
// Инкрементируется только patch: major и minor не меняются.
// Источник поведения сознательно сохранён без расширенной semver-логики
// (conventional commits и т.п. здесь не применяются).
func NextPatch(prev string) (string, error) {
	v, err := semver.StrictNewVersion(prev)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, prev)
	}
	next := v.IncPatch()
	return next.String(), nil
}

// ValidateVersion проверяет строку на строгий semver.
func ValidateVersion(s string) error {
	if _, err := semver.StrictNewVersion(s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return nil
}

// TagName возвращает имя git-тега для версии: "1.2.4" → "v1.2.4".
func TagName(version string) string {
	return "v" + version
}
