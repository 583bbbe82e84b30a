package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fibtrivia/internal/domain"
	"fibtrivia/internal/reveal"
)

// EnvPrefix prefixes every environment override, e.g. FIBTRIVIA_SERVER_PORT
const EnvPrefix = "FIBTRIVIA"

// Question store kinds
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Game      GameConfig
	Reveal    reveal.Timings
	Questions QuestionsConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string
	Port      int
	Env       string // "development" or "production"
	PublicURL string // Base of join links; derived from the request when empty
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers        int
	MaxPlayers        int
	QuestionsPerGame  int
	MaxNameLength     int
	MaxAnswerLength   int
	ReadingDuration   time.Duration
	SubmitDuration    time.Duration
	VotingDuration    time.Duration
	StartDelay        time.Duration
	VotingDelay       time.Duration
	ResultsDelay      time.Duration
	TickInterval      time.Duration
	CorrectVotePoints int
	FoolPlayerPoints  int
	KeepDisconnected  bool
	RoomCodeLength    int
	RoomCodeChars     string
	CleanupInterval   time.Duration
	StaleRoomTimeout  time.Duration
}

// QuestionsConfig selects and configures the question source
type QuestionsConfig struct {
	Store         string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	Seed          bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

type option struct {
	key   string
	def   interface{}
	usage string
}

var options = []option{
	{"server.host", "0.0.0.0", "address to bind to"},
	{"server.port", 8080, "port to listen on"},
	{"server.env", "development", "environment (development or production)"},
	{"server.public-url", "", "public base URL used in join links and QR codes"},

	{"game.min-players", 2, "players required to start"},
	{"game.max-players", 12, "players allowed per room"},
	{"game.questions-per-game", 2, "questions drawn for each room"},
	{"game.max-name-length", 20, "maximum player name length"},
	{"game.max-answer-length", 100, "maximum answer length"},
	{"game.reading-duration", 10 * time.Second, "time to read a question"},
	{"game.submit-duration", 30 * time.Second, "time to write a lie"},
	{"game.voting-duration", 20 * time.Second, "time to vote"},
	{"game.start-delay", 1 * time.Second, "pause between game start and the first question"},
	{"game.voting-delay", 2 * time.Second, "pause between the last answer and the ballot"},
	{"game.results-delay", 1 * time.Second, "pause between the last vote and the reveal"},
	{"game.tick-interval", 1 * time.Second, "timer broadcast interval"},
	{"game.correct-vote-points", 1000, "points for finding the truth"},
	{"game.fool-player-points", 500, "points per fooled player, split among co-authors"},
	{"game.keep-disconnected", false, "keep disconnected players so they can rejoin"},
	{"game.room-code-length", 4, "room code length"},
	{"game.room-code-chars", "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", "room code alphabet"},
	{"game.cleanup-interval", 5 * time.Minute, "stale room sweep interval"},
	{"game.stale-room-timeout", 2 * time.Hour, "age after which an empty room is removed"},

	{"reveal.phase-pause", 200 * time.Millisecond, "pause before the reveal starts"},
	{"reveal.start-pause", 500 * time.Millisecond, "pause after the board is shown"},
	{"reveal.answer-highlight", 500 * time.Millisecond, "answer highlight"},
	{"reveal.suspense", 1 * time.Second, "suspense before a reveal"},
	{"reveal.lie-reveal", 1500 * time.Millisecond, "lie reveal"},
	{"reveal.voter-stagger", 1 * time.Second, "per-voter stagger on a lie"},
	{"reveal.voter-settle", 500 * time.Millisecond, "settle after the voters of a lie"},
	{"reveal.author-reveal", 1500 * time.Millisecond, "author reveal"},
	{"reveal.score-update", 1500 * time.Millisecond, "score update"},
	{"reveal.reaction", 2 * time.Second, "reaction pause after each lie"},
	{"reveal.transition", 1 * time.Second, "transition to the next lie"},
	{"reveal.correct-highlight", 1 * time.Second, "truth highlight"},
	{"reveal.truth-reveal", 1500 * time.Millisecond, "truth reveal"},
	{"reveal.correct-voter-stagger", 2 * time.Second, "per-voter stagger on the truth"},
	{"reveal.correct-voter-settle", 500 * time.Millisecond, "settle after the voters of the truth"},
	{"reveal.explanation", 4 * time.Second, "explanation display"},

	{"questions.store", StoreMemory, "question store (memory or redis)"},
	{"questions.redis-addr", "localhost:6379", "redis address"},
	{"questions.redis-password", "", "redis password"},
	{"questions.redis-db", 0, "redis database"},
	{"questions.redis-prefix", "fibtrivia", "redis key prefix"},
	{"questions.seed", true, "seed redis from the built-in questions at startup"},

	{"logging.level", "info", "log level (debug, info, warn, error)"},
	{"logging.format", "text", "log format (json or text)"},
}

// NewViper returns a viper instance with defaults and environment overrides.
// Keys map onto variables by upper-casing and replacing dots and dashes, so
// game.voting-duration is read from FIBTRIVIA_GAME_VOTING_DURATION.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, o := range options {
		v.SetDefault(o.key, o.def)
	}
	return v
}

// RegisterFlags defines one flag per configuration key
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	for _, o := range options {
		usage := fmt.Sprintf("%s (env: %s)", o.usage, envName(o.key))
		switch def := o.def.(type) {
		case string:
			fs.String(o.key, def, usage)
		case int:
			fs.Int(o.key, def, usage)
		case bool:
			fs.Bool(o.key, def, usage)
		case time.Duration:
			fs.Duration(o.key, def, usage)
		}
	}
}

// BindFlags lets explicitly set flags override the environment and defaults
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil && err == nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

// Load materializes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:      v.GetString("server.host"),
			Port:      v.GetInt("server.port"),
			Env:       v.GetString("server.env"),
			PublicURL: v.GetString("server.public-url"),
		},
		Game: GameConfig{
			MinPlayers:        v.GetInt("game.min-players"),
			MaxPlayers:        v.GetInt("game.max-players"),
			QuestionsPerGame:  v.GetInt("game.questions-per-game"),
			MaxNameLength:     v.GetInt("game.max-name-length"),
			MaxAnswerLength:   v.GetInt("game.max-answer-length"),
			ReadingDuration:   v.GetDuration("game.reading-duration"),
			SubmitDuration:    v.GetDuration("game.submit-duration"),
			VotingDuration:    v.GetDuration("game.voting-duration"),
			StartDelay:        v.GetDuration("game.start-delay"),
			VotingDelay:       v.GetDuration("game.voting-delay"),
			ResultsDelay:      v.GetDuration("game.results-delay"),
			TickInterval:      v.GetDuration("game.tick-interval"),
			CorrectVotePoints: v.GetInt("game.correct-vote-points"),
			FoolPlayerPoints:  v.GetInt("game.fool-player-points"),
			KeepDisconnected:  v.GetBool("game.keep-disconnected"),
			RoomCodeLength:    v.GetInt("game.room-code-length"),
			RoomCodeChars:     v.GetString("game.room-code-chars"),
			CleanupInterval:   v.GetDuration("game.cleanup-interval"),
			StaleRoomTimeout:  v.GetDuration("game.stale-room-timeout"),
		},
		Reveal: reveal.Timings{
			PhasePause:          v.GetDuration("reveal.phase-pause"),
			StartPause:          v.GetDuration("reveal.start-pause"),
			AnswerHighlight:     v.GetDuration("reveal.answer-highlight"),
			Suspense:            v.GetDuration("reveal.suspense"),
			LieReveal:           v.GetDuration("reveal.lie-reveal"),
			VoterStagger:        v.GetDuration("reveal.voter-stagger"),
			VoterSettle:         v.GetDuration("reveal.voter-settle"),
			AuthorReveal:        v.GetDuration("reveal.author-reveal"),
			ScoreUpdate:         v.GetDuration("reveal.score-update"),
			Reaction:            v.GetDuration("reveal.reaction"),
			Transition:          v.GetDuration("reveal.transition"),
			CorrectHighlight:    v.GetDuration("reveal.correct-highlight"),
			TruthReveal:         v.GetDuration("reveal.truth-reveal"),
			CorrectVoterStagger: v.GetDuration("reveal.correct-voter-stagger"),
			CorrectVoterSettle:  v.GetDuration("reveal.correct-voter-settle"),
			Explanation:         v.GetDuration("reveal.explanation"),
		},
		Questions: QuestionsConfig{
			Store:         strings.ToLower(v.GetString("questions.store")),
			RedisAddr:     v.GetString("questions.redis-addr"),
			RedisPassword: v.GetString("questions.redis-password"),
			RedisDB:       v.GetInt("questions.redis-db"),
			RedisPrefix:   v.GetString("questions.redis-prefix"),
			Seed:          v.GetBool("questions.seed"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can run a server
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" {
		errs = append(errs, fmt.Errorf("invalid env %q", c.Server.Env))
	}

	g := c.Game
	if g.MinPlayers < 1 {
		errs = append(errs, fmt.Errorf("min players must be at least 1: %d", g.MinPlayers))
	}
	if g.MaxPlayers < g.MinPlayers {
		errs = append(errs, fmt.Errorf("max players (%d) is below min players (%d)", g.MaxPlayers, g.MinPlayers))
	}
	if g.QuestionsPerGame < 1 {
		errs = append(errs, fmt.Errorf("questions per game must be at least 1: %d", g.QuestionsPerGame))
	}
	if g.MaxNameLength < 1 || g.MaxAnswerLength < 1 {
		errs = append(errs, errors.New("name and answer length limits must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"reading duration":   g.ReadingDuration,
		"submit duration":    g.SubmitDuration,
		"voting duration":    g.VotingDuration,
		"tick interval":      g.TickInterval,
		"cleanup interval":   g.CleanupInterval,
		"stale room timeout": g.StaleRoomTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive: %s", name, d))
		}
	}
	if g.StartDelay < 0 || g.VotingDelay < 0 || g.ResultsDelay < 0 {
		errs = append(errs, errors.New("transition delays cannot be negative"))
	}
	if g.CorrectVotePoints < 0 || g.FoolPlayerPoints < 0 {
		errs = append(errs, errors.New("points cannot be negative"))
	}
	if g.RoomCodeLength < 3 {
		errs = append(errs, fmt.Errorf("room code length must be at least 3: %d", g.RoomCodeLength))
	}
	if g.RoomCodeChars == "" {
		errs = append(errs, errors.New("room code alphabet is empty"))
	}

	switch c.Questions.Store {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown question store %q", c.Questions.Store))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// GameRules converts the game section into room rules
func (c *Config) GameRules() domain.Rules {
	g := c.Game
	return domain.Rules{
		MinPlayers:      g.MinPlayers,
		MaxPlayers:      g.MaxPlayers,
		MaxNameLength:   g.MaxNameLength,
		MaxAnswerLength: g.MaxAnswerLength,
		ReadingDuration: g.ReadingDuration,
		SubmitDuration:  g.SubmitDuration,
		VotingDuration:  g.VotingDuration,
		ReadingLeadIn:   g.StartDelay,
		VotingLeadIn:    g.VotingDelay,
		Scoring: domain.ScoreRules{
			CorrectVotePoints: g.CorrectVotePoints,
			FoolPlayerPoints:  g.FoolPlayerPoints,
		},
		KeepDisconnected: g.KeepDisconnected,
	}
}

// RevealTimings returns the reveal step timings
func (c *Config) RevealTimings() reveal.Timings {
	return c.Reveal
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
