package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/relmanhq/relman/internal/secrets"
)

// Ошибки реестра.
var (
	// ErrUnauthorized — credential отвергнут реестром.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrVersionExists — версия уже опубликована. Повторная публикация
	// той же версии должна падать громко, а не перезаписывать артефакт.
	ErrVersionExists = errors.New("registry: version already published")

	// ErrPackageNotFound — пакет ещё ни разу не публиковался.
	ErrPackageNotFound = errors.New("registry: package not found")
)

// Client — HTTP клиент реестра пакетов.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient создаёт клиент для реестра по baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Login проверяет credential против реестра.
func (c *Client) Login(ctx context.Context, cred *secrets.Credential) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/me", nil)
	if err != nil {
		return err
	}
	if err := authorize(req, cred); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry login: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return unexpectedStatus("login", resp)
	}
}

// LastPublished возвращает последнюю опубликованную версию пакета.
// Если пакет ещё не публиковался — ErrPackageNotFound.
func (c *Client) LastPublished(ctx context.Context, pkg string) (string, error) {
	path := "/api/v1/packages/" + url.PathEscape(pkg) + "/latest"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry last published: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Version string `json:"version"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode latest version: %w", err)
		}
		return body.Version, nil
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	default:
		return "", unexpectedStatus("last published", resp)
	}
}

// Publish публикует версию пакета.
//
// HTTP 409 от реестра означает, что версия уже существует —
// ErrVersionExists, реестр не трогается.
func (c *Client) Publish(ctx context.Context, pkg, version string, cred *secrets.Credential) error {
	payload, err := json.Marshal(map[string]string{"version": version})
	if err != nil {
		return fmt.Errorf("marshal publish request: %w", err)
	}

	path := "/api/v1/packages/" + url.PathEscape(pkg) + "/versions"
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := authorize(req, cred); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry publish: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		c.logger.Info("version published", "package", pkg, "version", version)
		return nil
	case http.StatusConflict:
		return fmt.Errorf("%w: %s@%s", ErrVersionExists, pkg, version)
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return unexpectedStatus("publish", resp)
	}
}

// newRequest строит запрос к реестру.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	return req, nil
}

// authorize добавляет credential в заголовок запроса.
func authorize(req *http.Request, cred *secrets.Credential) error {
	token, err := cred.Value()
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// unexpectedStatus формирует ошибку для неожиданного HTTP статуса.
func unexpectedStatus(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("registry %s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(body))
}
