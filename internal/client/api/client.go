package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/homekeeper/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI defines the platform operations the resilience core depends on.
// CheckSession is the single probe the health monitor needs; RefreshSession
// renews a session close to expiry.
type ClientAPI interface {
	// CheckSession выполняет лёгкую проверку достижимости и валидности сессии
	CheckSession(ctx context.Context, accessToken string) (*api.SessionResponse, error)

	// RefreshSession обменивает refresh token на новую пару токенов
	RefreshSession(ctx context.Context, refreshToken string) (*api.TokenResponse, error)

	// SubmitAction воспроизводит отложенное действие на платформе
	SubmitAction(ctx context.Context, accessToken string, req *api.ActionRequest) error
}

// Client представляет HTTP клиент для взаимодействия с платформой данных
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// CheckSession проверяет текущую сессию на платформе
func (c *Client) CheckSession(ctx context.Context, accessToken string) (*api.SessionResponse, error) {
	var resp api.SessionResponse
	err := c.doRequest(ctx, "GET", "/api/v1/session", accessToken, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("session check failed: %w", err)
	}
	return &resp, nil
}

// RefreshSession обновляет сессию по refresh token
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	req := api.RefreshRequest{RefreshToken: refreshToken}
	err := c.doRequest(ctx, "POST", "/api/v1/session/refresh", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("session refresh failed: %w", err)
	}
	return &resp, nil
}

// SubmitAction отправляет отложенное действие на платформу.
// Платформа дедуплицирует повторы по client_ref.
func (c *Client) SubmitAction(ctx context.Context, accessToken string, req *api.ActionRequest) error {
	if err := c.doRequest(ctx, "POST", "/api/v1/actions", accessToken, req, nil); err != nil {
		return fmt.Errorf("action submit failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Отмена вызывающей стороной - не ошибка транспорта
		if errors.Is(err, context.Canceled) {
			return ErrAborted
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			httpErr.Message = errResp.Message
		} else {
			httpErr.Message = string(respBody)
		}
		return httpErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
