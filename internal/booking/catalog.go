package booking

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wolfman30/botpe-relay/internal/botpe"
)

//go:embed catalog.json
var defaultCatalog []byte

// Item is one selectable catalog entry.
type Item struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Catalog is the static script of selectable items per stage. It is read-only after load.
type Catalog struct {
	HospitalName string `json:"hospital_name"`
	Departments  []Item `json:"departments"`
	Locations    []Item `json:"locations"`
	Doctors      []Item `json:"doctors"`
	Dates        []Item `json:"dates"`
	TimeSlots    []Item `json:"time_slots"`
}

// LoadCatalog reads a catalog file, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("booking: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog JSON.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("booking: decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every stage has between one and botpe.MaxListRows items.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.HospitalName) == "" {
		return errors.New("booking: catalog hospital_name is required")
	}
	sections := []struct {
		name  string
		items []Item
	}{
		{"departments", c.Departments},
		{"locations", c.Locations},
		{"doctors", c.Doctors},
		{"dates", c.Dates},
		{"time_slots", c.TimeSlots},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			return fmt.Errorf("booking: catalog %s is empty", s.name)
		}
		if len(s.items) > botpe.MaxListRows {
			return fmt.Errorf("booking: catalog %s has %d items, max %d", s.name, len(s.items), botpe.MaxListRows)
		}
		for i, item := range s.items {
			if strings.TrimSpace(item.Title) == "" {
				return fmt.Errorf("booking: catalog %s[%d] has no title", s.name, i)
			}
		}
	}
	return nil
}

// ItemsFor returns the items offered while the session sits in stage.
func (c *Catalog) ItemsFor(stage Stage) []Item {
	switch stage {
	case StageInitial:
		return c.Departments
	case StageLocationReceived:
		return c.Locations
	case StageHospitalSelected:
		return c.Doctors
	case StageDoctorSelected:
		return c.Dates
	case StageDateSelected:
		return c.TimeSlots
	}
	return nil
}

// rows projects items into a single list section keyed by position, and
// returns the id to title snapshot that replies are resolved against.
func rows(items []Item) ([]botpe.ListSection, map[string]string) {
	out := make([]botpe.ListRow, 0, len(items))
	offered := make(map[string]string, len(items))
	for i, item := range items {
		id := strconv.Itoa(i)
		out = append(out, botpe.ListRow{
			ID:          id,
			Title:       botpe.Clip(item.Title, botpe.MaxListRowTitle),
			Description: botpe.Clip(item.Subtitle, botpe.MaxListRowDesc),
		})
		offered[id] = item.Title
	}
	return []botpe.ListSection{{Rows: out}}, offered
}
