package cli

// maskToken masks a token showing only the last 4 characters
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
