package path

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Loader loads and caches locally authored learning paths from the
// filesystem. These act as seed paths when the backend is unreachable and as
// fixtures in development.
type Loader struct {
	rootDir string
	paths   map[string]*Path // keyed by Path.Key()
	mu      sync.RWMutex
}

// NewLoader creates a loader and reads all path files under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		paths:   make(map[string]*Path),
	}
	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading paths: %w", err)
	}
	slog.Info("learning paths loaded", "paths", len(l.paths))
	return l, nil
}

// Get returns a path by id or legacy name key.
func (l *Loader) Get(key string) (*Path, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.paths[key]
	return p, ok
}

// All returns every loaded path.
func (l *Loader) All() []*Path {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Path, 0, len(l.paths))
	for _, p := range l.paths {
		out = append(out, p)
	}
	return out
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		switch {
		case strings.HasSuffix(p, ".yaml"), strings.HasSuffix(p, ".yml"):
			return l.loadYAML(p)
		case strings.HasSuffix(p, ".json"):
			return l.loadJSON(p)
		}
		return nil
	})
}

func (l *Loader) loadYAML(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	var payload struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Difficulty  string `yaml:"difficulty"`
		Duration    string `yaml:"duration"`
		Topics      []struct {
			Name         string        `yaml:"name"`
			Description  string        `yaml:"description"`
			TimeRequired string        `yaml:"time_required"`
			Links        []string      `yaml:"links"`
			Videos       []string      `yaml:"videos"`
			Subtopics    []lessonEntry `yaml:"subtopics"`
			Lessons      []lessonEntry `yaml:"lessons"`
			Completed    bool          `yaml:"completed"`
			QuizScore    float64       `yaml:"quiz_score"`
		} `yaml:"topics"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		slog.Warn("skipping invalid path YAML", "path", file, "error", err)
		return nil
	}
	if payload.Name == "" && payload.ID == "" {
		return nil // not a path file
	}

	p := &Path{
		ID:          payload.ID,
		Name:        payload.Name,
		Description: payload.Description,
		Difficulty:  payload.Difficulty,
		Duration:    payload.Duration,
	}
	for i, t := range payload.Topics {
		p.Topics = append(p.Topics, buildTopic(i, topicPayload{
			Name:         t.Name,
			Description:  t.Description,
			TimeRequired: t.TimeRequired,
			Links:        t.Links,
			Videos:       t.Videos,
			Subtopics:    t.Subtopics,
			Lessons:      t.Lessons,
			Completed:    t.Completed,
			QuizScore:    t.QuizScore,
		}))
	}

	l.mu.Lock()
	l.paths[p.Key()] = p
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadJSON(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	p, err := Parse(data)
	if err != nil {
		slog.Warn("skipping invalid path JSON", "path", file, "error", err)
		return nil
	}
	l.mu.Lock()
	l.paths[p.Key()] = p
	l.mu.Unlock()
	return nil
}
