package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/contextx"
)

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String 返回级别名称
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel 解析级别字符串，未知值按 INFO 处理
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	}
	return LevelInfo
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LogEntry 日志条目
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// Field 键值对
type Field struct {
	Key   string
	Value any
}

// KV 创建键值对
func KV(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger 日志记录器
type Logger struct {
	out    *log.Logger
	mu     sync.RWMutex
	level  Level
	format string
	closer io.Closer
}

// New 基于任意 writer 创建日志记录器
func New(w io.Writer, cfg LogConfig) *Logger {
	format := strings.ToLower(cfg.Format)
	if format != "json" {
		format = "text"
	}
	return &Logger{
		out:    log.New(w, "", 0),
		level:  ParseLevel(cfg.Level),
		format: format,
	}
}

// NewLogger 创建输出到标准输出的日志记录器
func NewLogger(level string) *Logger {
	return New(os.Stdout, LogConfig{Level: level, Format: "text"})
}

// NewWithFileRotation 创建按日期轮转的文件日志，同时输出到标准输出
func NewWithFileRotation(level, filename string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	rw := newDateRotateWriter(filename)
	l := New(io.MultiWriter(os.Stdout, rw), LogConfig{Level: level, Format: "text"})
	l.closer = rw
	return l, nil
}

// Debug 记录调试日志
func (l *Logger) Debug(ctx context.Context, message string, fields ...Field) {
	l.log(ctx, LevelDebug, message, fields...)
}

// Info 记录信息日志
func (l *Logger) Info(ctx context.Context, message string, fields ...Field) {
	l.log(ctx, LevelInfo, message, fields...)
}

// Warn 记录警告日志
func (l *Logger) Warn(ctx context.Context, message string, fields ...Field) {
	l.log(ctx, LevelWarn, message, fields...)
}

// Error 记录错误日志
func (l *Logger) Error(ctx context.Context, message string, fields ...Field) {
	l.log(ctx, LevelError, message, fields...)
}

// SetConfig 设置日志配置
func (l *Logger) SetConfig(cfg LogConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = ParseLevel(cfg.Level)
	if strings.ToLower(cfg.Format) == "json" {
		l.format = "json"
	} else {
		l.format = "text"
	}
}

// Enabled 判断级别是否输出
func (l *Logger) Enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// Close 关闭底层文件
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) log(ctx context.Context, level Level, message string, fields ...Field) {
	if l == nil || !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   message,
	}
	if ctx != nil {
		if id, ok := contextx.GetRequestID(ctx); ok {
			entry.RequestID = id
		}
		if id, ok := contextx.GetSessionID(ctx); ok {
			entry.SessionID = id
		}
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]any, len(fields))
		for _, f := range fields {
			if err, ok := f.Value.(error); ok {
				entry.Fields[f.Key] = err.Error()
				continue
			}
			entry.Fields[f.Key] = f.Value
		}
	}

	l.mu.RLock()
	format := l.format
	l.mu.RUnlock()

	var line string
	if format == "json" {
		b, err := json.Marshal(entry)
		if err != nil {
			line = fmt.Sprintf("日志序列化失败: %v", err)
		} else {
			line = string(b)
		}
	} else {
		line = formatTextLog(entry)
	}
	l.out.Println(line)
}

// formatTextLog 格式化文本日志，字段按键排序
func formatTextLog(entry LogEntry) string {
	var b strings.Builder
	if entry.SessionID != "" {
		fmt.Fprintf(&b, "session:%s ", entry.SessionID)
	}
	if entry.RequestID != "" {
		fmt.Fprintf(&b, "[%s] ", entry.RequestID)
	}
	fmt.Fprintf(&b, "%s [%s] %s", entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Level, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
		}
	}
	return b.String()
}

// dateRotateWriter 日期轮转写入器
type dateRotateWriter struct {
	filename string
	file     *os.File
	lastDate string
	mu       sync.Mutex
}

func newDateRotateWriter(filename string) *dateRotateWriter {
	return &dateRotateWriter{filename: filename}
}

// Write 实现io.Writer接口
func (w *dateRotateWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if w.lastDate != today {
		if w.file != nil {
			w.file.Close()
		}
		f, err := os.OpenFile(fmt.Sprintf("%s.%s", w.filename, today), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		w.file = f
		w.lastDate = today
	}
	return w.file.Write(p)
}

// Close 关闭写入器
func (w *dateRotateWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
)

// GetLogger 获取全局日志记录器，未初始化时返回标准输出 INFO 级别
func GetLogger() *Logger {
	globalLoggerOnce.Do(func() {
		if globalLogger == nil {
			globalLogger = NewLogger("INFO")
		}
	})
	return globalLogger
}

// SetGlobalLogger 设置全局日志记录器
func SetGlobalLogger(logger *Logger) {
	globalLoggerOnce.Do(func() {})
	globalLogger = logger
}

// Discard 丢弃所有输出，测试中使用
func Discard() *Logger {
	return New(io.Discard, LogConfig{Level: "ERROR"})
}
