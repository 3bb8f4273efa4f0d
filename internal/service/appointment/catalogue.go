package appointment

import (
	"fmt"
	"strings"
	"unicode"
)

// Catalogue is the fixed, ordered list of bookable slot labels for a day.
type Catalogue struct {
	labels []string
	index  map[string]struct{}
}

// NewCatalogue expands "HH:MM-HH:MM" windows into step-minute slot labels
// such as "09:00-09:30". A window whose length is not a multiple of step
// drops the trailing partial slot.
func NewCatalogue(windows []string, stepMinutes int) (*Catalogue, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("step must be positive, got %d", stepMinutes)
	}

	c := &Catalogue{index: make(map[string]struct{})}
	for _, w := range windows {
		start, end, err := parseWindow(w)
		if err != nil {
			return nil, err
		}
		for t := start; t+stepMinutes <= end; t += stepMinutes {
			label := formatClock(t) + "-" + formatClock(t+stepMinutes)
			if _, dup := c.index[label]; dup {
				continue
			}
			c.labels = append(c.labels, label)
			c.index[label] = struct{}{}
		}
	}
	if len(c.labels) == 0 {
		return nil, fmt.Errorf("slot catalogue is empty")
	}
	return c, nil
}

// Labels returns a copy of the catalogue in display order.
func (c *Catalogue) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *Catalogue) Contains(label string) bool {
	_, ok := c.index[label]
	return ok
}

// Available returns the catalogue minus the booked labels, in catalogue order.
func (c *Catalogue) Available(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[NormalizeSlot(b)] = struct{}{}
	}
	out := make([]string, 0, len(c.labels))
	for _, l := range c.labels {
		if _, ok := taken[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// NormalizeSlot canonicalises a slot label: surrounding and inner
// whitespace removed, letters upper-cased ("10:00 am" -> "10:00AM").
func NormalizeSlot(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

func parseWindow(w string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(w), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid window %q", w)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window %q: %w", w, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window %q: %w", w, err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("invalid window %q: end before start", w)
	}
	return start, end, nil
}

// parseClock turns "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
