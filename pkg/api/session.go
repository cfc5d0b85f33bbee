package api

// SessionResponse представляет ответ платформы на проверку сессии
// ExpiresAt равен нулю, если платформа не сообщает срок жизни токена
type SessionResponse struct {
	UserID    string `json:"user_id"`    // UUID пользователя на платформе
	ExpiresAt int64  `json:"expires_at"` // unix время истечения access token
}

// RefreshRequest представляет запрос на обновление сессии
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"` // refresh token текущей сессии
}

// TokenResponse представляет ответ с новой парой токенов
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // access token платформы (JWT)
	RefreshToken string `json:"refresh_token"` // refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// ErrorResponse представляет ответ платформы с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
