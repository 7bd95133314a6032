// internal/config/config.go
//
// Environment-driven configuration for the server and the terminal client.
// Responsibilities:
//   - Read env vars with defaults (a `.env` file is loaded by main via godotenv).
//   - Build game.Rules from the board and gameplay variables.
//   - Reject malformed values early so main can fail fast.
//
// Notes:
//   - QUEUED_COUNT is clamped into 1-6 rather than rejected.
//   - BOARD_BLOCKED lists cells removed from the board as "x,y;x,y".

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
)

// Config is the full process configuration.
type Config struct {
	Port     string
	LogLevel string
	DBPath   string

	JWTSecret    string
	JWTExpiry    time.Duration
	CookieName   string
	AnonCookie   string
	ClientOrigin string
	Production   bool
	DailySalt    string

	PaletteFile string
	Sound       bool
	SFXVolume   float64

	Rules game.Rules
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	c := Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DBPath:       getEnv("DB_PATH", "./data/orbline.db"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		CookieName:   getEnv("COOKIE_NAME", "orbline_token"),
		AnonCookie:   getEnv("ANON_COOKIE_NAME", "orbline_anon"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:   os.Getenv("NODE_ENV") == "production",
		DailySalt:    getEnv("DAILY_SALT", "orbline-daily"),
		PaletteFile:  os.Getenv("PALETTE_FILE"),
	}

	days, err := envInt("JWT_EXPIRES_DAYS", 14)
	if err != nil {
		return Config{}, err
	}
	c.JWTExpiry = time.Duration(days) * 24 * time.Hour

	switch v := strings.ToLower(getEnv("SOUND", "off")); v {
	case "on", "1", "true", "yes":
		c.Sound = true
	case "off", "0", "false", "no":
	default:
		return Config{}, fmt.Errorf("config: SOUND=%q: want on or off", v)
	}
	if c.SFXVolume, err = envFloat("SFX_VOLUME", 0.6); err != nil {
		return Config{}, err
	}
	if c.SFXVolume < 0 || c.SFXVolume > 1 {
		return Config{}, fmt.Errorf("config: SFX_VOLUME=%v out of range 0-1", c.SFXVolume)
	}

	if c.Rules, err = LoadRules(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadRules builds the gameplay rules from the environment.
func LoadRules() (game.Rules, error) {
	r := game.DefaultRules()

	topo, err := board.ParseTopology(getEnv("BOARD_TOPOLOGY", string(r.Topology)))
	if err != nil {
		return r, fmt.Errorf("config: BOARD_TOPOLOGY: %w", err)
	}
	r.Topology = topo
	if r.Blocked, err = ParseBlocked(os.Getenv("BOARD_BLOCKED")); err != nil {
		return r, fmt.Errorf("config: BOARD_BLOCKED: %w", err)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BOARD_WIDTH", &r.Width},
		{"BOARD_HEIGHT", &r.Height},
		{"QUEUED_COUNT", &r.QueuedCount},
		{"EXPLODE_COUNT", &r.ExplodeCount},
		{"INIT_GROW_UP_COUNT", &r.InitGrowUpCount},
		{"GHOST_APPEAR_CHANCE", &r.GhostAppearChance},
	}
	for _, f := range ints {
		v, err := envInt(f.key, *f.dst)
		if err != nil {
			return r, err
		}
		*f.dst = v
	}
	uints := []struct {
		key string
		dst *uint
	}{
		{"SCORE_PER_EXPLODED", &r.ScorePerExploded},
		{"MAX_SCORE", &r.MaxScore},
		{"GHOST_COUNT", &r.GhostCount},
	}
	for _, f := range uints {
		v, err := envUint(f.key, *f.dst)
		if err != nil {
			return r, err
		}
		*f.dst = v
	}

	r.QueuedCount = min(max(r.QueuedCount, 1), game.MaxQueuedCount)
	if err := r.Validate(); err != nil {
		return r, fmt.Errorf("config: %w", err)
	}
	return r, nil
}

// ParseBlocked parses "x,y;x,y" into positions. Empty input yields nil.
func ParseBlocked(s string) ([]board.Position, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []board.Position
	for _, cell := range strings.Split(s, ";") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		xs, ys, ok := strings.Cut(cell, ",")
		if !ok {
			return nil, fmt.Errorf("cell %q: want x,y", cell)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xs))
		if err != nil {
			return nil, fmt.Errorf("cell %q: %w", cell, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ys))
		if err != nil {
			return nil, fmt.Errorf("cell %q: %w", cell, err)
		}
		out = append(out, board.Position{X: x, Y: y})
	}
	return out, nil
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("config: %s=%q: %w", k, v, err)
	}
	return n, nil
}

func envUint(k string, def uint) (uint, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 0)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q: %w", k, v, err)
	}
	return uint(n), nil
}

func envFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q: %w", k, v, err)
	}
	return f, nil
}
