package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mattermost/calls-speaker-transcriber/cmd/transcriber/transcribe"

	"gopkg.in/yaml.v3"
)

const (
	// defaults
	DataDirDefault              = "/data"
	ModelsDirDefault            = "./models"
	LogLevelDefault             = "debug"
	StoreBackendDefault         = StoreBackendFile
	StoreFileName               = "speaker_profiles.json"
	RedisKeyDefault             = "transcriber:speakers"
	MatchThresholdDefault       = 0.75
	LongClipThresholdSecDefault = 30.0
	ChunkSizeSecDefault         = 5.0
	NumWorkersDefault           = 1
	SegmentationAPIDefault      = SegmentationAPISherpa
	EmbeddingAPIDefault         = EmbeddingAPISherpa
	TranscribeAPIDefault        = TranscribeAPIWhisperCPP
	ModelSizeDefault            = ModelSizeBase
	LanguageDefault             = "auto"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatVTT  OutputFormat = "vtt"
	OutputFormatJSON OutputFormat = "json"
)

func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatVTT, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// OutputFormats is the list of transcript formats to write. The text format
// is always written.
type OutputFormats []OutputFormat

func (f OutputFormats) Has(format OutputFormat) bool {
	if format == OutputFormatText {
		return true
	}
	for _, ff := range f {
		if ff == format {
			return true
		}
	}
	return false
}

func (f OutputFormats) String() string {
	s := make([]string, len(f))
	for i, ff := range f {
		s[i] = string(ff)
	}
	return strings.Join(s, ",")
}

func parseOutputFormats(val string) OutputFormats {
	var formats OutputFormats
	for _, f := range strings.Split(val, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			formats = append(formats, OutputFormat(f))
		}
	}
	return formats
}

type ModelSize string

const (
	ModelSizeTiny   ModelSize = "tiny"
	ModelSizeBase   ModelSize = "base"
	ModelSizeSmall  ModelSize = "small"
	ModelSizeMedium ModelSize = "medium"
	ModelSizeLarge  ModelSize = "large"
)

func (p ModelSize) IsValid() bool {
	switch p {
	case ModelSizeTiny, ModelSizeBase, ModelSizeSmall, ModelSizeMedium, ModelSizeLarge:
		return true
	default:
		return false
	}
}

type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP TranscribeAPI = "whisper.cpp"
	TranscribeAPIAzure      TranscribeAPI = "azure"
	TranscribeAPIVosk       TranscribeAPI = "vosk"
	TranscribeAPIOpenAI     TranscribeAPI = "openai"
)

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIAzure, TranscribeAPIVosk, TranscribeAPIOpenAI:
		return true
	default:
		return false
	}
}

type SegmentationAPI string

const (
	SegmentationAPISherpa SegmentationAPI = "sherpa"
	SegmentationAPIHTTP   SegmentationAPI = "http"
)

func (a SegmentationAPI) IsValid() bool {
	return a == SegmentationAPISherpa || a == SegmentationAPIHTTP
}

type EmbeddingAPI string

const (
	EmbeddingAPISherpa EmbeddingAPI = "sherpa"
	EmbeddingAPIHTTP   EmbeddingAPI = "http"
)

func (a EmbeddingAPI) IsValid() bool {
	return a == EmbeddingAPISherpa || a == EmbeddingAPIHTTP
}

type StoreBackend string

const (
	StoreBackendFile  StoreBackend = "file"
	StoreBackendRedis StoreBackend = "redis"
)

func (b StoreBackend) IsValid() bool {
	return b == StoreBackendFile || b == StoreBackendRedis
}

type OutputOptions struct {
	WebVTT transcribe.WebVTTOptions
	Text   transcribe.TextOptions
}

type TranscriberConfig struct {
	// paths
	DataDir   string
	ModelsDir string
	LogLevel  string

	// enrollment store
	StoreBackend StoreBackend
	StorePath    string
	RedisURL     string
	RedisKey     string
	// Pins the embedding dimension (zero means inferred from the data).
	EmbeddingDim int

	// identification
	MatchThreshold       float64
	LongClipThresholdSec float64
	ChunkSizeSec         float64

	// processing
	NumWorkers     int
	TurnTimeoutSec int
	NumThreads     int

	// collaborators
	SegmentationAPI   SegmentationAPI
	EmbeddingAPI      EmbeddingAPI
	TranscribeAPI     TranscribeAPI
	ModelSize         ModelSize
	Language          string
	DiarizationURL    string
	EmbeddingURL      string
	TranscribeURL     string
	TranscribeAPIKey  string
	VoskURL           string
	AzureSpeechKey    string
	AzureSpeechRegion string
	VADEnabled        bool

	// output config
	OutputFormats OutputFormats
	OutputOptions OutputOptions
}

func (cfg TranscriberConfig) IsValid() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("DataDir cannot be empty")
	}
	if cfg.ModelsDir == "" {
		return fmt.Errorf("ModelsDir cannot be empty")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("LogLevel value is not valid")
	}

	if !cfg.StoreBackend.IsValid() {
		return fmt.Errorf("StoreBackend value is not valid")
	}
	switch cfg.StoreBackend {
	case StoreBackendFile:
		if cfg.StorePath == "" {
			return fmt.Errorf("StorePath cannot be empty")
		}
	case StoreBackendRedis:
		if err := validateURL("RedisURL", cfg.RedisURL, "redis", "rediss"); err != nil {
			return err
		}
		if cfg.RedisKey == "" {
			return fmt.Errorf("RedisKey cannot be empty")
		}
	}
	if cfg.EmbeddingDim < 0 {
		return fmt.Errorf("EmbeddingDim should not be negative")
	}

	if cfg.MatchThreshold < -1 || cfg.MatchThreshold > 1 {
		return fmt.Errorf("MatchThreshold should be in the range [-1, 1]")
	}
	if cfg.LongClipThresholdSec <= 0 {
		return fmt.Errorf("LongClipThresholdSec should be positive")
	}
	if cfg.ChunkSizeSec <= 0 {
		return fmt.Errorf("ChunkSizeSec should be positive")
	}
	if cfg.ChunkSizeSec > cfg.LongClipThresholdSec {
		return fmt.Errorf("ChunkSizeSec should not be greater than LongClipThresholdSec")
	}

	if cfg.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers should be a positive number")
	}
	if cfg.TurnTimeoutSec < 0 {
		return fmt.Errorf("TurnTimeoutSec should not be negative")
	}
	if numCPU := runtime.NumCPU(); cfg.NumThreads < 1 || cfg.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if !cfg.SegmentationAPI.IsValid() {
		return fmt.Errorf("SegmentationAPI value is not valid")
	}
	if cfg.SegmentationAPI == SegmentationAPIHTTP {
		if err := validateURL("DiarizationURL", cfg.DiarizationURL, "http", "https"); err != nil {
			return err
		}
	}

	if !cfg.EmbeddingAPI.IsValid() {
		return fmt.Errorf("EmbeddingAPI value is not valid")
	}
	if cfg.EmbeddingAPI == EmbeddingAPIHTTP {
		if err := validateURL("EmbeddingURL", cfg.EmbeddingURL, "http", "https"); err != nil {
			return err
		}
	}

	if !cfg.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}
	switch cfg.TranscribeAPI {
	case TranscribeAPIWhisperCPP:
		if !cfg.ModelSize.IsValid() {
			return fmt.Errorf("ModelSize value is not valid")
		}
	case TranscribeAPIAzure:
		if cfg.AzureSpeechKey == "" {
			return fmt.Errorf("AzureSpeechKey cannot be empty")
		}
		if cfg.AzureSpeechRegion == "" {
			return fmt.Errorf("AzureSpeechRegion cannot be empty")
		}
	case TranscribeAPIVosk:
		if err := validateURL("VoskURL", cfg.VoskURL, "ws", "wss"); err != nil {
			return err
		}
	case TranscribeAPIOpenAI:
		if err := validateURL("TranscribeURL", cfg.TranscribeURL, "http", "https"); err != nil {
			return err
		}
	}

	for _, f := range cfg.OutputFormats {
		if !f.IsValid() {
			return fmt.Errorf("OutputFormats value %q is not valid", f)
		}
	}

	if err := cfg.OutputOptions.Text.IsValid(); err != nil {
		return err
	}

	return cfg.OutputOptions.WebVTT.IsValid()
}

func validateURL(name, val string, schemes ...string) error {
	if val == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}

	u, err := url.Parse(val)
	if err != nil {
		return fmt.Errorf("%s parsing failed: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s parsing failed: invalid scheme %q", name, u.Scheme)
}

// newConfig returns an empty config seeded with the values SetDefaults can't
// infer from a zero field.
func newConfig() TranscriberConfig {
	return TranscriberConfig{
		MatchThreshold: MatchThresholdDefault,
	}
}

// SetDefaults fills the empty fields. MatchThreshold is left alone since zero
// is a valid threshold.
func (cfg *TranscriberConfig) SetDefaults() {
	if cfg.DataDir == "" {
		cfg.DataDir = DataDirDefault
	}

	if cfg.ModelsDir == "" {
		cfg.ModelsDir = ModelsDirDefault
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelDefault
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreBackendDefault
	}

	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(cfg.DataDir, StoreFileName)
	}

	if cfg.RedisKey == "" {
		cfg.RedisKey = RedisKeyDefault
	}

	if cfg.LongClipThresholdSec == 0 {
		cfg.LongClipThresholdSec = LongClipThresholdSecDefault
	}

	if cfg.ChunkSizeSec == 0 {
		cfg.ChunkSizeSec = ChunkSizeSecDefault
	}

	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = NumWorkersDefault
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	if cfg.SegmentationAPI == "" {
		cfg.SegmentationAPI = SegmentationAPIDefault
	}

	if cfg.EmbeddingAPI == "" {
		cfg.EmbeddingAPI = EmbeddingAPIDefault
	}

	if cfg.TranscribeAPI == "" {
		cfg.TranscribeAPI = TranscribeAPIDefault
	}

	if cfg.ModelSize == "" {
		cfg.ModelSize = ModelSizeDefault
	}

	if cfg.Language == "" {
		cfg.Language = LanguageDefault
	}

	if len(cfg.OutputFormats) == 0 {
		cfg.OutputFormats = OutputFormats{OutputFormatText}
	}

	if cfg.OutputOptions.WebVTT.IsEmpty() {
		cfg.OutputOptions.WebVTT.SetDefaults()
	}

	if cfg.OutputOptions.Text.IsEmpty() {
		cfg.OutputOptions.Text.SetDefaults()
	}
}

func (cfg TranscriberConfig) ToEnv() []string {
	vars := []string{
		fmt.Sprintf("DATA_DIR=%s", cfg.DataDir),
		fmt.Sprintf("MODELS_DIR=%s", cfg.ModelsDir),
		fmt.Sprintf("LOG_LEVEL=%s", cfg.LogLevel),
		fmt.Sprintf("STORE_BACKEND=%s", cfg.StoreBackend),
		fmt.Sprintf("STORE_PATH=%s", cfg.StorePath),
		fmt.Sprintf("REDIS_URL=%s", cfg.RedisURL),
		fmt.Sprintf("REDIS_KEY=%s", cfg.RedisKey),
		fmt.Sprintf("EMBEDDING_DIM=%d", cfg.EmbeddingDim),
		fmt.Sprintf("MATCH_THRESHOLD=%s", strconv.FormatFloat(cfg.MatchThreshold, 'f', -1, 64)),
		fmt.Sprintf("LONG_CLIP_THRESHOLD_SEC=%s", strconv.FormatFloat(cfg.LongClipThresholdSec, 'f', -1, 64)),
		fmt.Sprintf("CHUNK_SIZE_SEC=%s", strconv.FormatFloat(cfg.ChunkSizeSec, 'f', -1, 64)),
		fmt.Sprintf("NUM_WORKERS=%d", cfg.NumWorkers),
		fmt.Sprintf("TURN_TIMEOUT_SEC=%d", cfg.TurnTimeoutSec),
		fmt.Sprintf("NUM_THREADS=%d", cfg.NumThreads),
		fmt.Sprintf("SEGMENTATION_API=%s", cfg.SegmentationAPI),
		fmt.Sprintf("EMBEDDING_API=%s", cfg.EmbeddingAPI),
		fmt.Sprintf("TRANSCRIBE_API=%s", cfg.TranscribeAPI),
		fmt.Sprintf("MODEL_SIZE=%s", cfg.ModelSize),
		fmt.Sprintf("TRANSCRIBE_LANGUAGE=%s", cfg.Language),
		fmt.Sprintf("DIARIZATION_URL=%s", cfg.DiarizationURL),
		fmt.Sprintf("EMBEDDING_URL=%s", cfg.EmbeddingURL),
		fmt.Sprintf("TRANSCRIBE_URL=%s", cfg.TranscribeURL),
		fmt.Sprintf("TRANSCRIBE_API_KEY=%s", cfg.TranscribeAPIKey),
		fmt.Sprintf("VOSK_URL=%s", cfg.VoskURL),
		fmt.Sprintf("AZURE_SPEECH_KEY=%s", cfg.AzureSpeechKey),
		fmt.Sprintf("AZURE_SPEECH_REGION=%s", cfg.AzureSpeechRegion),
		fmt.Sprintf("VAD_ENABLED=%t", cfg.VADEnabled),
		fmt.Sprintf("OUTPUT_FORMATS=%s", cfg.OutputFormats),
	}

	vars = append(vars, cfg.OutputOptions.WebVTT.ToEnv()...)
	vars = append(vars, cfg.OutputOptions.Text.ToEnv()...)

	return vars
}

func (cfg TranscriberConfig) ToMap() map[string]any {
	m := map[string]any{
		"data_dir":                cfg.DataDir,
		"models_dir":              cfg.ModelsDir,
		"log_level":               cfg.LogLevel,
		"store_backend":           string(cfg.StoreBackend),
		"store_path":              cfg.StorePath,
		"redis_url":               cfg.RedisURL,
		"redis_key":               cfg.RedisKey,
		"embedding_dim":           cfg.EmbeddingDim,
		"match_threshold":         cfg.MatchThreshold,
		"long_clip_threshold_sec": cfg.LongClipThresholdSec,
		"chunk_size_sec":          cfg.ChunkSizeSec,
		"num_workers":             cfg.NumWorkers,
		"turn_timeout_sec":        cfg.TurnTimeoutSec,
		"num_threads":             cfg.NumThreads,
		"segmentation_api":        string(cfg.SegmentationAPI),
		"embedding_api":           string(cfg.EmbeddingAPI),
		"transcribe_api":          string(cfg.TranscribeAPI),
		"model_size":              string(cfg.ModelSize),
		"language":                cfg.Language,
		"diarization_url":         cfg.DiarizationURL,
		"embedding_url":           cfg.EmbeddingURL,
		"transcribe_url":          cfg.TranscribeURL,
		"transcribe_api_key":      cfg.TranscribeAPIKey,
		"vosk_url":                cfg.VoskURL,
		"azure_speech_key":        cfg.AzureSpeechKey,
		"azure_speech_region":     cfg.AzureSpeechRegion,
		"vad_enabled":             cfg.VADEnabled,
		"output_formats":          cfg.OutputFormats.String(),
	}

	for k, v := range cfg.OutputOptions.WebVTT.ToMap() {
		m[k] = v
	}
	for k, v := range cfg.OutputOptions.Text.ToMap() {
		m[k] = v
	}

	return m
}

func (cfg *TranscriberConfig) FromMap(m map[string]any) *TranscriberConfig {
	cfg.DataDir, _ = m["data_dir"].(string)
	cfg.ModelsDir, _ = m["models_dir"].(string)
	cfg.LogLevel, _ = m["log_level"].(string)
	cfg.StorePath, _ = m["store_path"].(string)
	cfg.RedisURL, _ = m["redis_url"].(string)
	cfg.RedisKey, _ = m["redis_key"].(string)
	cfg.Language, _ = m["language"].(string)
	cfg.DiarizationURL, _ = m["diarization_url"].(string)
	cfg.EmbeddingURL, _ = m["embedding_url"].(string)
	cfg.TranscribeURL, _ = m["transcribe_url"].(string)
	cfg.TranscribeAPIKey, _ = m["transcribe_api_key"].(string)
	cfg.VoskURL, _ = m["vosk_url"].(string)
	cfg.AzureSpeechKey, _ = m["azure_speech_key"].(string)
	cfg.AzureSpeechRegion, _ = m["azure_speech_region"].(string)
	cfg.VADEnabled, _ = m["vad_enabled"].(bool)

	cfg.EmbeddingDim = toInt(m["embedding_dim"])
	cfg.NumWorkers = toInt(m["num_workers"])
	cfg.TurnTimeoutSec = toInt(m["turn_timeout_sec"])
	cfg.NumThreads = toInt(m["num_threads"])
	if v, ok := m["match_threshold"]; ok {
		cfg.MatchThreshold = toFloat(v)
	}
	cfg.LongClipThresholdSec = toFloat(m["long_clip_threshold_sec"])
	cfg.ChunkSizeSec = toFloat(m["chunk_size_sec"])

	storeBackend, _ := m["store_backend"].(string)
	cfg.StoreBackend = StoreBackend(storeBackend)
	segmentationAPI, _ := m["segmentation_api"].(string)
	cfg.SegmentationAPI = SegmentationAPI(segmentationAPI)
	embeddingAPI, _ := m["embedding_api"].(string)
	cfg.EmbeddingAPI = EmbeddingAPI(embeddingAPI)
	transcribeAPI, _ := m["transcribe_api"].(string)
	cfg.TranscribeAPI = TranscribeAPI(transcribeAPI)
	modelSize, _ := m["model_size"].(string)
	cfg.ModelSize = ModelSize(modelSize)

	switch formats := m["output_formats"].(type) {
	case string:
		cfg.OutputFormats = parseOutputFormats(formats)
	case []any:
		cfg.OutputFormats = nil
		for _, f := range formats {
			if s, ok := f.(string); ok {
				cfg.OutputFormats = append(cfg.OutputFormats, OutputFormat(strings.ToLower(s)))
			}
		}
	}

	cfg.OutputOptions.WebVTT.FromMap(m)
	cfg.OutputOptions.Text.FromMap(m)

	return cfg
}

// numeric values can either be int or float64 depending whether they've been
// previously marshaled or not.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// FromFile loads the config from a YAML file using the same keys as ToMap.
func FromFile(path string) (TranscriberConfig, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.FromMap(m)

	return cfg, nil
}

// FromEnv overrides the config with any of the supported environment variables
// that is set.
func (cfg *TranscriberConfig) FromEnv() error {
	setString := func(dst *string, key string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(dst *int, key string) error {
		if val := os.Getenv(key); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	setFloat := func(dst *float64, key string) error {
		if val := os.Getenv(key); val != "" {
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}

	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.ModelsDir, "MODELS_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.StorePath, "STORE_PATH")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.RedisKey, "REDIS_KEY")
	setString(&cfg.Language, "TRANSCRIBE_LANGUAGE")
	setString(&cfg.DiarizationURL, "DIARIZATION_URL")
	setString(&cfg.EmbeddingURL, "EMBEDDING_URL")
	setString(&cfg.TranscribeURL, "TRANSCRIBE_URL")
	setString(&cfg.TranscribeAPIKey, "TRANSCRIBE_API_KEY")
	setString(&cfg.VoskURL, "VOSK_URL")
	setString(&cfg.AzureSpeechKey, "AZURE_SPEECH_KEY")
	setString(&cfg.AzureSpeechRegion, "AZURE_SPEECH_REGION")

	if val := os.Getenv("STORE_BACKEND"); val != "" {
		cfg.StoreBackend = StoreBackend(val)
	}
	if val := os.Getenv("SEGMENTATION_API"); val != "" {
		cfg.SegmentationAPI = SegmentationAPI(val)
	}
	if val := os.Getenv("EMBEDDING_API"); val != "" {
		cfg.EmbeddingAPI = EmbeddingAPI(val)
	}
	if val := os.Getenv("TRANSCRIBE_API"); val != "" {
		cfg.TranscribeAPI = TranscribeAPI(val)
	}
	if val := os.Getenv("MODEL_SIZE"); val != "" {
		cfg.ModelSize = ModelSize(val)
	}
	if val := os.Getenv("OUTPUT_FORMATS"); val != "" {
		cfg.OutputFormats = parseOutputFormats(val)
	}
	if val := os.Getenv("VAD_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("failed to parse VAD_ENABLED: %w", err)
		}
		cfg.VADEnabled = enabled
	}

	for key, dst := range map[string]*int{
		"EMBEDDING_DIM":    &cfg.EmbeddingDim,
		"NUM_WORKERS":      &cfg.NumWorkers,
		"TURN_TIMEOUT_SEC": &cfg.TurnTimeoutSec,
		"NUM_THREADS":      &cfg.NumThreads,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*float64{
		"MATCH_THRESHOLD":         &cfg.MatchThreshold,
		"LONG_CLIP_THRESHOLD_SEC": &cfg.LongClipThresholdSec,
		"CHUNK_SIZE_SEC":          &cfg.ChunkSizeSec,
	} {
		if err := setFloat(dst, key); err != nil {
			return err
		}
	}

	if os.Getenv("WEBVTT_OMIT_SPEAKER") != "" {
		cfg.OutputOptions.WebVTT.FromEnv()
	}
	if os.Getenv("TEXT_TITLE") != "" {
		cfg.OutputOptions.Text.FromEnv()
	}

	return nil
}

// Load builds the config from the optional YAML file at path, then applies
// environment overrides and defaults.
func Load(path string) (TranscriberConfig, error) {
	cfg := newConfig()
	if path != "" {
		var err error
		cfg, err = FromFile(path)
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.FromEnv(); err != nil {
		return cfg, err
	}

	cfg.SetDefaults()

	if err := cfg.IsValid(); err != nil {
		return cfg, fmt.Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}

// Level returns the configured log level, falling back to debug.
func (cfg TranscriberConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
