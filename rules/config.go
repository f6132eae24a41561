// Package rules holds the pure scoring rules of the timeline game.
package rules

import "fmt"

// Config carries the tunable game constants.
type Config struct {
	WinningScore   int `mapstructure:"winning_score" json:"winningScore"`
	InitialTokens  int `mapstructure:"initial_tokens" json:"initialTokens"`
	MaxTokens      int `mapstructure:"max_tokens" json:"maxTokens"`
	StreakForToken int `mapstructure:"streak_for_token" json:"streakForToken"`
	TokenCostSkip  int `mapstructure:"token_cost_skip" json:"tokenCostSkip"`
	TokenCostAuto  int `mapstructure:"token_cost_auto" json:"tokenCostAuto"`
}

// Defaults returns the standard rule set.
func Defaults() Config {
	return Config{
		WinningScore:   10,
		InitialTokens:  2,
		MaxTokens:      4,
		StreakForToken: 3,
		TokenCostSkip:  1,
		TokenCostAuto:  3,
	}
}

func (c Config) Validate() error {
	switch {
	case c.WinningScore < 2:
		return fmt.Errorf("rules: winning score must be at least 2, got %d", c.WinningScore)
	case c.InitialTokens < 0 || c.MaxTokens < c.InitialTokens:
		return fmt.Errorf("rules: need 0 <= initial tokens (%d) <= max tokens (%d)", c.InitialTokens, c.MaxTokens)
	case c.StreakForToken < 1:
		return fmt.Errorf("rules: streak for token must be positive, got %d", c.StreakForToken)
	case c.TokenCostSkip < 0 || c.TokenCostAuto < 0:
		return fmt.Errorf("rules: token costs must not be negative")
	}
	return nil
}
