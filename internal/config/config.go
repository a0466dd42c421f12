package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults match the original deployment: eight seats and a small
// fixed word list.
const (
	DefaultAddr       = ":8080"
	DefaultMaxPlayers = 8
)

var defaultWords = []string{"ocean", "piano", "galaxy", "pumpkin", "satellite", "museum", "bicycle"}

type Config struct {
	Addr       string
	MaxPlayers int
	Words      []string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present. Missing or malformed values fall back to
// defaults rather than failing startup.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:       DefaultAddr,
		MaxPlayers: DefaultMaxPlayers,
		Words:      defaultWords,
	}

	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.MaxPlayers = n
		}
	}

	if raw := os.Getenv("WORDS"); raw != "" {
		var words []string
		for _, w := range strings.Split(raw, ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			cfg.Words = words
		}
	}

	return cfg
}
