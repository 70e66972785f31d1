package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// DefaultFilePath is used when file logging is enabled without a path.
const DefaultFilePath = "./homework.log"

// Service owns the process log sinks and can be reconfigured while loggers
// obtained from it are in use.
type Service struct {
	mu   sync.Mutex
	file *os.File
	path string

	root atomic.Pointer[zerolog.Logger]
}

// New builds the service from cfg and returns it with its root logger.
func New(cfg Config) (*Service, Logger) {
	initGlobals()
	s := &Service{}
	s.Apply(cfg)
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

func (s *Service) current() *zerolog.Logger { return s.root.Load() }

// FilePath is the open log file, "" when file logging is off.
func (s *Service) FilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Apply swaps sinks and level. An unchanged file path keeps the same handle, so
// lines are only ever appended.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, consoleWriter(Stdout()))
	}
	if cfg.File.Enabled {
		if f := s.openLocked(cfg.File.Path); f != nil {
			sinks = append(sinks, zerolog.SyncWriter(f))
		}
	} else {
		s.releaseLocked()
	}
	if len(sinks) == 0 {
		sinks = []io.Writer{consoleWriter(Stdout())}
	}

	zl := build(LevelInfo, cfg.Level, zerolog.MultiLevelWriter(sinks...))
	s.root.Store(&zl)
}

func (s *Service) openLocked(path string) *os.File {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultFilePath
	}
	if s.file != nil && s.path == path {
		return s.file
	}
	s.releaseLocked()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(Stderr(), "logx: open %q: %v\n", path, err)
		return nil
	}
	s.file, s.path = f, path
	return f
}

func (s *Service) releaseLocked() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.path = nil, ""
	return err
}

// Close releases the log file. Loggers keep working on the remaining sinks.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}
