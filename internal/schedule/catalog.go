// Package schedule holds the catalog of bookable offerings: a fixed ordered
// list of (date + location) labels, each with its own list of time labels.
package schedule

import (
	"fmt"

	"github.com/atelier-events/bookingbot/config"
)

// Offering is one bookable date at one location.
type Offering struct {
	Label string   // e.g. "21 Jan — Location A"
	Times []string // e.g. ["10:00", "12:00", "14:00"]
}

// Catalog is the fixed set of offerings, in configured order.
type Catalog struct {
	offerings []Offering
	byLabel   map[string]int
}

// Parse builds a catalog from the config string form:
// "<date label>=<time>,<time>;<date label>=<time>,...".
func Parse(raw string) (*Catalog, error) {
	c := &Catalog{byLabel: make(map[string]int)}
	for _, entry := range config.SplitTrim(raw, ";") {
		parts := config.SplitTrim(entry, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("offering %q: want <label>=<times>", entry)
		}
		label := parts[0]
		times := config.SplitTrim(parts[1], ",")
		if len(times) == 0 {
			return nil, fmt.Errorf("offering %q: no time slots", label)
		}
		if _, dup := c.byLabel[label]; dup {
			return nil, fmt.Errorf("offering %q: duplicate label", label)
		}
		c.byLabel[label] = len(c.offerings)
		c.offerings = append(c.offerings, Offering{Label: label, Times: times})
	}
	if len(c.offerings) == 0 {
		return nil, fmt.Errorf("empty offerings catalog")
	}
	return c, nil
}

// Offerings returns all offerings in order.
func (c *Catalog) Offerings() []Offering {
	return c.offerings
}

// DateLabels returns the offering labels in order.
func (c *Catalog) DateLabels() []string {
	labels := make([]string, len(c.offerings))
	for i, o := range c.offerings {
		labels[i] = o.Label
	}
	return labels
}

// HasDate reports whether label is an offering in the catalog.
func (c *Catalog) HasDate(label string) bool {
	_, ok := c.byLabel[label]
	return ok
}

// TimesFor returns the time labels for a date label, or nil if unknown.
func (c *Catalog) TimesFor(dateLabel string) []string {
	i, ok := c.byLabel[dateLabel]
	if !ok {
		return nil
	}
	return c.offerings[i].Times
}

// HasTime reports whether timeLabel is offered on dateLabel.
func (c *Catalog) HasTime(dateLabel, timeLabel string) bool {
	for _, t := range c.TimesFor(dateLabel) {
		if t == timeLabel {
			return true
		}
	}
	return false
}
