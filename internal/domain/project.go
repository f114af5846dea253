package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ошибки валидации проекта.
var (
	// ErrEmptyName — не задано имя проекта.
	ErrEmptyName = errors.New("project name is empty")

	// ErrEmptyRepoURL — не задан URL репозитория.
	ErrEmptyRepoURL = errors.New("repo url is empty")

	// ErrEmptyBranch — не задана release-ветка.
	ErrEmptyBranch = errors.New("release branch is empty")

	// ErrEmptyRegistry — не задан registry или имя пакета.
	ErrEmptyRegistry = errors.New("registry url or package name is empty")

	// ErrEmptyCommand — не задана команда стадии.
	ErrEmptyCommand = errors.New("stage command is empty")

	// ErrEmptyIdentity — не задана git-идентичность для коммитов.
	ErrEmptyIdentity = errors.New("git identity is empty")
)

// Значения по умолчанию для проекта.
const (
	// DefaultRemote — имя remote для push.
	DefaultRemote = "origin"

	// DefaultRetentionDays — сколько дней хранить terminal runs.
	DefaultRetentionDays = 90
)

// Project — пакет, релизы которого автоматизирует relman.
//
// Вся конфигурация pipeline (ветка, команды, identity, registry) живёт
// здесь и передаётся оркестратору явно — никакого глобального
// мутабельного окружения (ambient git config, login-сессий и т.п.).
type Project struct {
	// ID — уникальный идентификатор проекта.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя (уникально).
	Name string `json:"name"`

	// RepoURL — URL git-репозитория с исходниками.
	RepoURL string `json:"repo_url"`

	// Branch — release-ветка. Только push в неё запускает pipeline.
	Branch string `json:"branch"`

	// Remote — имя remote для push коммита и тега.
	Remote string `json:"remote"`

	// RegistryURL — базовый URL package registry.
	RegistryURL string `json:"registry_url"`

	// Package — имя пакета в registry.
	Package string `json:"package"`

	// InstallCmd — команда установки release-инструмента.
	InstallCmd string `json:"install_cmd"`

	// BuildCmd — команда сборки пакета.
	BuildCmd string `json:"build_cmd"`

	// TestCmd — команда запуска тестов.
	TestCmd string `json:"test_cmd"`

	// GitName, GitEmail — идентичность для коммитов, создаваемых run'ом.
	GitName  string `json:"git_name"`
	GitEmail string `json:"git_email"`

	// CredentialRef — ссылка на секрет с registry-токеном
	// (имя переменной у secrets-провайдера, не сам токен).
	CredentialRef string `json:"credential_ref"`

	// RetentionDays — сколько дней janitor хранит terminal runs.
	RetentionDays int `json:"retention_days"`

	// IsActive — неактивные проекты не принимают триггеры.
	IsActive bool `json:"is_active"`

	// CreatedAt, UpdatedAt — временные метки.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate проверяет конфигурацию проекта.
func (p *Project) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if p.RepoURL == "" {
		return ErrEmptyRepoURL
	}
	if p.Branch == "" {
		return ErrEmptyBranch
	}
	if p.RegistryURL == "" || p.Package == "" {
		return ErrEmptyRegistry
	}
	if p.InstallCmd == "" {
		return fmt.Errorf("%w: install_cmd", ErrEmptyCommand)
	}
	if p.BuildCmd == "" {
		return fmt.Errorf("%w: build_cmd", ErrEmptyCommand)
	}
	if p.TestCmd == "" {
		return fmt.Errorf("%w: test_cmd", ErrEmptyCommand)
	}
	if p.GitName == "" || p.GitEmail == "" {
		return ErrEmptyIdentity
	}
	return nil
}

// ApplyDefaults заполняет незаданные поля значениями по умолчанию.
func (p *Project) ApplyDefaults() {
	if p.Remote == "" {
		p.Remote = DefaultRemote
	}
	if p.RetentionDays <= 0 {
		p.RetentionDays = DefaultRetentionDays
	}
}
