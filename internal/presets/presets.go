// Package presets holds the per-vertical defaults used to seed a new
// workspace: business settings, board stages, a starter catalog and the
// terminology the UI shows for shared concepts.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/bizdesk/internal/application"
)

//go:embed presets.yaml
var builtin []byte

// ErrUnknownVertical is returned when a vertical has no preset.
var ErrUnknownVertical = errors.New("presets: unknown vertical")

// Preset describes one business vertical.
type Preset struct {
	BusinessName    string            `yaml:"businessName"`
	Currency        string            `yaml:"currency"`
	MeetingDuration int               `yaml:"meetingDuration"`
	Hours           Hours             `yaml:"hours"`
	OpenDays        []string          `yaml:"openDays"`
	Pipeline        []string          `yaml:"pipeline"`
	Projects        []string          `yaml:"projects"`
	Services        []ServicePreset   `yaml:"services"`
	Terms           map[string]string `yaml:"terms"`
}

// Hours is the opening window of a preset.
type Hours struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ServicePreset is a starter catalog entry.
type ServicePreset struct {
	Name     string  `yaml:"name"`
	Price    float64 `yaml:"price"`
	Duration int     `yaml:"duration"`
}

// Catalog is the set of presets keyed by vertical.
type Catalog struct {
	Default   string            `yaml:"default"`
	Verticals map[string]Preset `yaml:"verticals"`
}

// Builtin parses the embedded presets.
func Builtin() (*Catalog, error) {
	return parse(builtin)
}

// Load returns the built-in presets, with the verticals of the file at path
// layered on top when path is not empty.
func Load(path string) (*Catalog, error) {
	catalog, err := Builtin()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return catalog, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	override, err := parse(raw)
	if err != nil {
		return nil, fmt.Errorf("preset file %s: %w", path, err)
	}
	for name, preset := range override.Verticals {
		catalog.Verticals[name] = preset
	}
	if override.Default != "" {
		catalog.Default = override.Default
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func parse(raw []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if catalog.Verticals == nil {
		catalog.Verticals = make(map[string]Preset)
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	if _, ok := c.Verticals[c.Default]; !ok {
		return fmt.Errorf("%w: default %q", ErrUnknownVertical, c.Default)
	}
	for name, preset := range c.Verticals {
		for _, day := range preset.OpenDays {
			if _, ok := parseWeekday(day); !ok {
				return fmt.Errorf("preset %s: unknown weekday %q", name, day)
			}
		}
	}
	return nil
}

// Names lists the verticals in lexical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Verticals))
	for name := range c.Verticals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Terminology returns the label overrides of vertical.
func (c *Catalog) Terminology(vertical string) (map[string]string, error) {
	preset, name, err := c.lookup(vertical)
	if err != nil {
		return nil, err
	}
	terms := make(map[string]string, len(preset.Terms)+1)
	for key, value := range preset.Terms {
		terms[key] = value
	}
	terms["vertical"] = name
	return terms, nil
}

// Data builds the starter aggregate of vertical. Ids are derived from the
// vertical and position so repeated calls produce identical aggregates.
func (c *Catalog) Data(vertical string) (application.StoredData, error) {
	preset, name, err := c.lookup(vertical)
	if err != nil {
		return application.StoredData{}, err
	}

	data := application.EmptyData()
	settings := data.Settings
	settings.Vertical = name
	if preset.BusinessName != "" {
		settings.BusinessName = preset.BusinessName
	}
	if preset.Currency != "" {
		settings.Currency = preset.Currency
	}
	if preset.MeetingDuration > 0 {
		settings.MeetingDuration = preset.MeetingDuration
	}
	if preset.Hours.Start != "" && preset.Hours.End != "" {
		settings.AvailableHours = application.HoursRange{Start: preset.Hours.Start, End: preset.Hours.End}
	}
	if len(preset.OpenDays) > 0 {
		settings.AvailableDays = nil
		settings.DaySchedules = make(map[time.Weekday]application.DaySchedule, 7)
		for day := time.Sunday; day <= time.Saturday; day++ {
			settings.DaySchedules[day] = application.DaySchedule{
				StartTime: settings.AvailableHours.Start,
				EndTime:   settings.AvailableHours.End,
			}
		}
		for _, value := range preset.OpenDays {
			day, _ := parseWeekday(value)
			schedule := settings.DaySchedules[day]
			schedule.Enabled = true
			settings.DaySchedules[day] = schedule
			settings.AvailableDays = append(settings.AvailableDays, day)
		}
		slices.Sort(settings.AvailableDays)
		settings.AvailableDays = slices.Compact(settings.AvailableDays)
	}
	data.Settings = settings

	for i, stage := range preset.Pipeline {
		data.PipelineStages = append(data.PipelineStages, application.PipelineStage{
			ID: fmt.Sprintf("%s-pipeline-%d", name, i+1), Name: stage, Order: i,
		})
	}
	for i, stage := range preset.Projects {
		data.ProjectStages = append(data.ProjectStages, application.ProjectStage{
			ID: fmt.Sprintf("%s-project-%d", name, i+1), Name: stage, Order: i,
		})
	}
	for i, service := range preset.Services {
		data.Services = append(data.Services, application.Service{
			ID:       fmt.Sprintf("%s-service-%d", name, i+1),
			Name:     service.Name,
			Price:    service.Price,
			Duration: service.Duration,
			Active:   true,
		})
	}
	return data, nil
}

// DefaultsFunc returns a store Defaults hook for vertical. An unknown vertical
// falls back to the catalog default.
func (c *Catalog) DefaultsFunc(vertical string) func() application.StoredData {
	return func() application.StoredData {
		data, err := c.Data(vertical)
		if err != nil {
			data, err = c.Data("")
		}
		if err != nil {
			return application.EmptyData()
		}
		return data
	}
}

func (c *Catalog) lookup(vertical string) (Preset, string, error) {
	name := strings.ToLower(strings.TrimSpace(vertical))
	if name == "" {
		name = c.Default
	}
	preset, ok := c.Verticals[name]
	if !ok {
		return Preset{}, "", fmt.Errorf("%w: %q", ErrUnknownVertical, vertical)
	}
	return preset, name, nil
}

func parseWeekday(value string) (time.Weekday, bool) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), strings.TrimSpace(value)) {
			return day, true
		}
	}
	return 0, false
}
