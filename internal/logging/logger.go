// Package logging provides the structured async logger used by the
// rayvn CLI and its subcommands. Log entries are produced on the
// caller's goroutine but written on a dedicated background goroutine,
// decoupling formatting I/O from the hot path of compilation and
// execution.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Format selects how entries are rendered on their output writer.
type Format int

const (
	Text Format = iota
	JSON
)

// Entry is one fully-formed log record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Config configures a Logger.
type Config struct {
	MinLevel   Level
	Format     Format
	Output     io.Writer
	BufferSize int
}

// Logger is a minimum-level-filtered, asynchronously-drained logger.
// It tags every entry with a run id generated when the Logger is
// created; `rayvn run` creates one Logger per invocation.
type Logger struct {
	cfg    Config
	runID  string
	buf    chan *Entry
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates and starts a Logger. Call Close to drain and stop it.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}
	l := &Logger{
		cfg:   cfg,
		runID: uuid.NewString(),
		buf:   make(chan *Entry, cfg.BufferSize),
	}
	l.wg.Add(1)
	go l.drain()
	return l
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for e := range l.buf {
		l.write(e)
	}
}

func (l *Logger) write(e *Entry) {
	switch l.cfg.Format {
	case JSON:
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintln(l.cfg.Output, string(data))
	default:
		fmt.Fprintf(l.cfg.Output, "%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
	}
}

func (l *Logger) log(level Level, msg string, fields map[string]any) {
	if level < l.cfg.MinLevel {
		return
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	l.buf <- &Entry{Timestamp: time.Now(), Level: level.String(), Message: msg, RunID: l.runID, Fields: fields}
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.log(Debug, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.log(Info, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.log(Warn, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.log(Error, msg, fields) }

// Close drains any buffered entries and stops the background
// goroutine. A Logger must not be reused after Close.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	close(l.buf)
	l.wg.Wait()
}
