// Package settings keeps the scene lighting and visual grade and persists
// them as YAML in the user data directory.
package settings

import (
	"fmt"
	"sync"

	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

const (
	settingsObject   = "settings"
	settingsProperty = "scene"
)

// Scene is the persisted settings document.
type Scene struct {
	Lighting core.LightingType   `yaml:"lighting" json:"lighting"`
	Visual   core.VisualSettings `yaml:"visual" json:"visual"`
}

// DefaultScene is daylight with the neutral grade.
func DefaultScene() Scene {
	return Scene{
		Lighting: core.LightingDay,
		Visual:   core.DefaultVisualSettings(),
	}
}

// Store holds the current Scene. A nil gdata manager keeps settings in
// memory only.
type Store struct {
	mu    sync.RWMutex
	data  *gdata.Manager
	log   *logging.SlogManager
	scene Scene
}

// Open opens the gdata directory for appName. An empty appName gives an
// in-memory store.
func Open(appName string, logManager *logging.SlogManager) (*Store, error) {
	if appName == "" {
		return New(nil, logManager), nil
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings storage: %w", err)
	}
	return New(m, logManager), nil
}

// New creates a Store and loads any saved scene. A load failure falls back
// to defaults.
func New(m *gdata.Manager, logManager *logging.SlogManager) *Store {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	s := &Store{data: m, log: logManager, scene: DefaultScene()}
	if err := s.Load(); err != nil {
		s.log.WriteLog("settings:New", fmt.Sprintf("Failed to load settings, using defaults: %v", err), "WARN")
	}
	return s
}

// Load replaces the current scene with the saved one.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil || !s.data.ObjectPropExists(settingsObject, settingsProperty) {
		s.scene = DefaultScene()
		return nil
	}
	raw, err := s.data.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		s.scene = DefaultScene()
		return fmt.Errorf("failed to load settings: %w", err)
	}
	scene, err := decode(raw)
	if err != nil {
		s.scene = DefaultScene()
		return err
	}
	s.scene = scene
	return nil
}

// Save writes the current scene. It is a no-op for an in-memory store.
func (s *Store) Save() error {
	s.mu.RLock()
	scene := s.scene
	s.mu.RUnlock()

	if s.data == nil {
		return nil
	}
	raw, err := yaml.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.data.SaveObjectProp(settingsObject, settingsProperty, raw); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Scene returns a copy of the current settings.
func (s *Store) Scene() Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene
}

// SetLighting changes the lighting preset and saves.
func (s *Store) SetLighting(l core.LightingType) error {
	if _, err := core.ParseLightingType(string(l)); err != nil {
		return err
	}
	s.mu.Lock()
	s.scene.Lighting = l
	s.mu.Unlock()
	return s.Save()
}

// SetVisual clamps v into range, stores it and saves.
func (s *Store) SetVisual(v core.VisualSettings) error {
	s.mu.Lock()
	s.scene.Visual = v.Clamp()
	s.mu.Unlock()
	return s.Save()
}

// decode parses a saved document. Unknown lighting falls back to day and
// out-of-range knobs are clamped.
func decode(raw []byte) (Scene, error) {
	scene := DefaultScene()
	if err := yaml.Unmarshal(raw, &scene); err != nil {
		return DefaultScene(), fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if _, err := core.ParseLightingType(string(scene.Lighting)); err != nil {
		scene.Lighting = core.LightingDay
	}
	scene.Visual = scene.Visual.Clamp()
	return scene, nil
}
