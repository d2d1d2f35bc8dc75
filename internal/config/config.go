package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/stampkit/internal/detection"
	"github.com/ironsheep/stampkit/internal/imaging"
)

// ErrInvalidConfig is returned by Validate and the Parse helpers.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Detect DetectConfig
	Trim   TrimConfig
	Output OutputConfig
	Colors ColorConfig
	Batch  BatchConfig
	Log    LogConfig
}

type DetectConfig struct {
	Thresholds   []int
	MinAreaRatio float64
	MaxAreaRatio float64
}

type TrimConfig struct {
	Threshold int
	Padding   int
}

type OutputConfig struct {
	Width  int
	Height int
}

type ColorConfig struct {
	Flatten color.NRGBA
	Preview color.NRGBA
}

type BatchConfig struct {
	Dir   string
	Names []string
	// BackupDir is resolved against Dir when relative.
	BackupDir string
	Workers   int
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Default stamp files processed when STAMP_NAMES is unset.
var DefaultNames = []string{"neynar.png", "farcaster.png", "warplet.png", "based.png"}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Detect: DetectConfig{
			Thresholds:   append([]int(nil), detection.DefaultThresholds...),
			MinAreaRatio: detection.DefaultMinAreaRatio,
			MaxAreaRatio: detection.DefaultMaxAreaRatio,
		},
		Trim: TrimConfig{
			Threshold: detection.DefaultTrimThreshold,
			Padding:   detection.DefaultTrimPadding,
		},
		Output: OutputConfig{
			Width:  imaging.DefaultSize.Width,
			Height: imaging.DefaultSize.Height,
		},
		Colors: ColorConfig{
			Flatten: imaging.FlattenColor,
			Preview: imaging.PreviewColor,
		},
		Batch: BatchConfig{
			Dir:       "stamp",
			Names:     append([]string(nil), DefaultNames...),
			BackupDir: "backup_original",
			Workers:   4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads dotenv files into the process environment and builds a Config
// from STAMP_* variables. Without files it reads ".env" from the working
// directory and skips it when absent; files named explicitly must exist.
// Existing environment variables win over the file. Every STAMP_* value is
// parsed strictly: a malformed one is an error, never a silent default.
func Load(files ...string) (*Config, error) {
	if err := loadDotEnv(files); err != nil {
		return nil, err
	}

	def := Default()
	cfg := &Config{
		Batch: BatchConfig{
			Dir:       getEnv("STAMP_DIR", def.Batch.Dir),
			Names:     getEnvAsList("STAMP_NAMES", def.Batch.Names),
			BackupDir: getEnv("STAMP_BACKUP_DIR", def.Batch.BackupDir),
		},
		Log: LogConfig{
			Level:  getEnv("STAMP_LOG_LEVEL", def.Log.Level),
			Format: getEnv("STAMP_LOG_FORMAT", def.Log.Format),
			File:   getEnv("STAMP_LOG_FILE", def.Log.File),
		},
	}

	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"STAMP_TRIM_THRESHOLD", &cfg.Trim.Threshold, def.Trim.Threshold},
		{"STAMP_TRIM_PADDING", &cfg.Trim.Padding, def.Trim.Padding},
		{"STAMP_WORKERS", &cfg.Batch.Workers, def.Batch.Workers},
	}
	for _, v := range ints {
		n, err := getEnvAsInt(v.key, v.def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = n
	}

	floats := []struct {
		key string
		dst *float64
		def float64
	}{
		{"STAMP_MIN_AREA", &cfg.Detect.MinAreaRatio, def.Detect.MinAreaRatio},
		{"STAMP_MAX_AREA", &cfg.Detect.MaxAreaRatio, def.Detect.MaxAreaRatio},
	}
	for _, v := range floats {
		f, err := getEnvAsFloat(v.key, v.def)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.key, err)
		}
		*v.dst = f
	}

	var err error
	if cfg.Detect.Thresholds, err = ParseThresholds(getEnv("STAMP_THRESHOLDS", joinInts(def.Detect.Thresholds))); err != nil {
		return nil, fmt.Errorf("STAMP_THRESHOLDS: %w", err)
	}
	size, err := ParseSize(getEnv("STAMP_TARGET_SIZE", def.Output.String()))
	if err != nil {
		return nil, fmt.Errorf("STAMP_TARGET_SIZE: %w", err)
	}
	cfg.Output = OutputConfig{Width: size.Width, Height: size.Height}
	if cfg.Colors.Flatten, err = getEnvAsColor("STAMP_FLATTEN_COLOR", def.Colors.Flatten); err != nil {
		return nil, fmt.Errorf("STAMP_FLATTEN_COLOR: %w", err)
	}
	if cfg.Colors.Preview, err = getEnvAsColor("STAMP_PREVIEW_COLOR", def.Colors.Preview); err != nil {
		return nil, fmt.Errorf("STAMP_PREVIEW_COLOR: %w", err)
	}

	return cfg, nil
}

// Validate reports the first out-of-range value.
func (c *Config) Validate() error {
	if err := c.Detect.ContentOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Trim.TrimOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !c.Output.Size().Valid() {
		return fmt.Errorf("%w: target size %s must be positive", ErrInvalidConfig, c.Output)
	}
	if c.Batch.Dir == "" {
		return fmt.Errorf("%w: stamp directory is required", ErrInvalidConfig)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Batch.Workers)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q must be console or json", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func (d DetectConfig) ContentOptions() detection.ContentOptions {
	return detection.ContentOptions{
		Thresholds:   append([]int(nil), d.Thresholds...),
		MinAreaRatio: d.MinAreaRatio,
		MaxAreaRatio: d.MaxAreaRatio,
	}
}

func (t TrimConfig) TrimOptions() detection.TrimOptions {
	return detection.TrimOptions{Threshold: t.Threshold, Padding: t.Padding}
}

func (o OutputConfig) Size() imaging.Size {
	return imaging.Size{Width: o.Width, Height: o.Height}
}

func (o OutputConfig) String() string {
	return o.Size().String()
}

// BackupPath returns BackupDir, joined onto Dir unless it is absolute.
func (b BatchConfig) BackupPath() string {
	if b.BackupDir == "" || filepath.IsAbs(b.BackupDir) {
		return b.BackupDir
	}
	return filepath.Join(b.Dir, b.BackupDir)
}

// ParseThresholds parses a comma-separated list such as "250,240,230".
func ParseThresholds(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		t, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("%w: threshold %q is not an integer", ErrInvalidConfig, field)
		}
		if t < 0 || t > 255 {
			return nil, fmt.Errorf("%w: threshold %d outside 0-255", ErrInvalidConfig, t)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no thresholds in %q", ErrInvalidConfig, s)
	}
	return out, nil
}

// ParseSize parses "WIDTHxHEIGHT", e.g. "400x500".
func ParseSize(s string) (imaging.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return imaging.Size{}, fmt.Errorf("%w: size %q must look like 400x500", ErrInvalidConfig, s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return imaging.Size{}, fmt.Errorf("%w: size %q must look like 400x500", ErrInvalidConfig, s)
	}
	size := imaging.Size{Width: width, Height: height}
	if !size.Valid() {
		return imaging.Size{}, fmt.Errorf("%w: size %s must be positive", ErrInvalidConfig, size)
	}
	return size, nil
}

// ParseColor parses a hex color such as "#001a10".
func ParseColor(s string) (color.NRGBA, error) {
	c, err := imaging.ParseHexColor(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// loadDotEnv applies files, or an optional ".env" when files is empty.
func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidConfig, value)
	}
	return n, nil
}

func getEnvAsFloat(key string, defaultVal float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidConfig, value)
	}
	return f, nil
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsColor(key string, defaultVal color.NRGBA) (color.NRGBA, error) {
	if value := os.Getenv(key); value != "" {
		return ParseColor(value)
	}
	return defaultVal, nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
