// Package logging provides config-driven categorized file-based logging
// for lexgraph. Logs are written to <dir>/logs/ with separate files per
// category. When debug mode is off every call is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // startup and shutdown
	CategorySizing    Category = "sizing"    // size detection
	CategoryRouting   Category = "routing"   // strategy routing decisions
	CategoryChunker   Category = "chunker"   // chunk boundary selection
	CategoryPrompt    Category = "prompt"    // template loading and assembly
	CategoryPatterns  Category = "patterns"  // pattern catalog fetches
	CategoryInference Category = "inference" // backend calls, retries, breaker
	CategoryValidate  Category = "validate"  // response validation
	CategoryExtract   Category = "extract"   // orchestrator waves and merging
	CategoryGPU       Category = "gpu"       // resource monitor samples
)

// Options controls logger behavior; set once at startup.
type Options struct {
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Categories map[string]bool // nil means all enabled
}

type state struct {
	dir      string
	opts     Options
	logLevel int
}

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	cfg       state
	cfgMu     sync.RWMutex
)

// Logger wraps a standard logger writing to a per-category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Initialize sets up the logging directory and options. Should be called
// once at startup; calling with DebugMode false leaves logging as a no-op.
func Initialize(dir string, opts Options) error {
	cfgMu.Lock()
	cfg = state{dir: filepath.Join(dir, "logs"), opts: opts, logLevel: parseLevel(opts.Level)}
	cfgMu.Unlock()

	if !opts.DebugMode {
		return nil
	}
	if dir == "" {
		return fmt.Errorf("log directory required when debug mode is on")
	}
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	Get(CategoryBoot).Info("=== lexgraph logging initialized ===")
	Get(CategoryBoot).Info("Logs directory: %s level=%s", filepath.Join(dir, "logs"), opts.Level)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsCategoryEnabled returns whether a category currently logs anywhere.
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	if !cfg.opts.DebugMode {
		return false
	}
	if cfg.opts.Categories == nil {
		return true
	}
	enabled, exists := cfg.opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	cfgMu.RLock()
	dir := cfg.dir
	cfgMu.RUnlock()

	// Date prefix keeps rotation trivial.
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file: %v\n", err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) level() int {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.logLevel
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || l.level() > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always written if the logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first.
// These are no-ops if the category is disabled.
// =============================================================================

// Routing logs to the routing category.
func Routing(format string, args ...interface{}) {
	Get(CategoryRouting).Info(format, args...)
}

// Chunker logs to the chunker category.
func Chunker(format string, args ...interface{}) {
	Get(CategoryChunker).Info(format, args...)
}

// ChunkerDebug logs debug to the chunker category.
func ChunkerDebug(format string, args ...interface{}) {
	Get(CategoryChunker).Debug(format, args...)
}

// Prompt logs to the prompt category.
func Prompt(format string, args ...interface{}) {
	Get(CategoryPrompt).Info(format, args...)
}

// Patterns logs to the patterns category.
func Patterns(format string, args ...interface{}) {
	Get(CategoryPatterns).Info(format, args...)
}

// Inference logs to the inference category.
func Inference(format string, args ...interface{}) {
	Get(CategoryInference).Info(format, args...)
}

// InferenceDebug logs debug to the inference category.
func InferenceDebug(format string, args ...interface{}) {
	Get(CategoryInference).Debug(format, args...)
}

// InferenceWarn logs a warning to the inference category.
func InferenceWarn(format string, args ...interface{}) {
	Get(CategoryInference).Warn(format, args...)
}

// Validate logs to the validate category.
func Validate(format string, args ...interface{}) {
	Get(CategoryValidate).Info(format, args...)
}

// Extract logs to the extract category.
func Extract(format string, args ...interface{}) {
	Get(CategoryExtract).Info(format, args...)
}

// ExtractDebug logs debug to the extract category.
func ExtractDebug(format string, args ...interface{}) {
	Get(CategoryExtract).Debug(format, args...)
}

// ExtractWarn logs a warning to the extract category.
func ExtractWarn(format string, args ...interface{}) {
	Get(CategoryExtract).Warn(format, args...)
}

// GPU logs to the gpu category.
func GPU(format string, args ...interface{}) {
	Get(CategoryGPU).Info(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// RateLimited wraps a category logger and suppresses repeats within an
// interval. Used by the resource monitor so threshold breaches do not
// flood the log.
type RateLimited struct {
	category Category
	interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewRateLimited creates a rate-limited logger for a category.
func NewRateLimited(category Category, interval time.Duration) *RateLimited {
	return &RateLimited{category: category, interval: interval, last: make(map[string]time.Time)}
}

// Warn logs at warn level at most once per interval per key.
func (r *RateLimited) Warn(key, format string, args ...interface{}) {
	r.mu.Lock()
	last, ok := r.last[key]
	now := time.Now()
	if ok && now.Sub(last) < r.interval {
		r.mu.Unlock()
		return
	}
	r.last[key] = now
	r.mu.Unlock()
	Get(r.category).Warn(format, args...)
}
