package models

// UserProfile holds one user's trading configuration for the duration of
// a single scheduler cycle. Credentials arrive decrypted from the
// directory service and are never persisted here.
type UserProfile struct {
	UserID            string  `json:"user_id"`
	APIKey            string  `json:"api_key"`
	APISecret         string  `json:"api_secret"`
	RiskLevel         string  `json:"risk_level"`
	MaxLeverage       float64 `json:"max_leverage"`
	CustomPrompt      string  `json:"custom_prompt,omitempty"`
	PreferredSymbol   string  `json:"preferred_symbol"`
	PreferredInterval string  `json:"preferred_interval"`
	CandleWindow      int     `json:"candle_window,omitempty"`
}
