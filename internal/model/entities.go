package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ExperienceBand describes the level of experience a gig expects.
type ExperienceBand string

const (
	BandBasic        ExperienceBand = "basic"
	BandIntermediate ExperienceBand = "intermediate"
	BandPro          ExperienceBand = "pro"
	BandTopTier      ExperienceBand = "top-tier"
	BandExpert       ExperienceBand = "expert"
)

// BudgetRange is an inclusive [Min, Max] budget interval.
type BudgetRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v falls inside the range. A zero Max means
// the range is open-ended upward.
func (r BudgetRange) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max <= 0 || v <= r.Max
}

// AvailabilityWindow is a half-open [From, To) interval in which a
// reviewer has declared availability.
type AvailabilityWindow struct {
	From time.Time `json:"from" yaml:"from"`
	To   time.Time `json:"to" yaml:"to"`
}

// Covers reports whether t falls inside the window.
func (w AvailabilityWindow) Covers(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Proposer is a demand unit: a gig, or a virtual gig synthesized from
// free-form preferences. Read-only for the duration of a matching run.
type Proposer struct {
	ID          string         `json:"id" yaml:"id"`
	Category    string         `json:"category" yaml:"category"`
	City        string         `json:"city" yaml:"city"`
	Region      string         `json:"region,omitempty" yaml:"region,omitempty"`
	RemoteOK    bool           `json:"remote_ok,omitempty" yaml:"remote_ok,omitempty"`
	Budget      float64        `json:"budget" yaml:"budget"`
	BudgetRange *BudgetRange   `json:"budget_range,omitempty" yaml:"budget_range,omitempty"`
	Experience  ExperienceBand `json:"experience,omitempty" yaml:"experience,omitempty"`
	Skills      []string       `json:"skills,omitempty" yaml:"skills,omitempty"`
	StyleTags   []string       `json:"style_tags,omitempty" yaml:"style_tags,omitempty"`
	Brief       string         `json:"brief,omitempty" yaml:"brief,omitempty"`
	StartDate   *time.Time     `json:"start_date,omitempty" yaml:"start_date,omitempty"`
}

// EffectiveBudget returns the single budget value used for scoring: the
// midpoint of the declared range when present, otherwise Budget.
func (p *Proposer) EffectiveBudget() float64 {
	if p.BudgetRange != nil && p.BudgetRange.Max > 0 {
		return (p.BudgetRange.Min + p.BudgetRange.Max) / 2
	}
	return p.Budget
}

// Validate checks the proposer for structural problems that make a
// matching run impossible. Returns a fatal error before any computation.
func (p *Proposer) Validate() error {
	if p.ID == "" {
		return eris.New("model: proposer id is required")
	}
	if p.Budget < 0 {
		return eris.Errorf("model: proposer %s has negative budget", p.ID)
	}
	if p.BudgetRange != nil && p.BudgetRange.Max > 0 && p.BudgetRange.Min > p.BudgetRange.Max {
		return eris.Errorf("model: proposer %s budget range is inverted", p.ID)
	}
	switch p.Experience {
	case "", BandBasic, BandIntermediate, BandPro, BandTopTier, BandExpert:
	default:
		return eris.Errorf("model: proposer %s has unknown experience band %q", p.ID, p.Experience)
	}
	return nil
}

// Reviewer is a supply unit: a creative-talent profile. Read-only for
// the duration of a matching run.
type Reviewer struct {
	ID              string               `json:"id" yaml:"id"`
	Name            string               `json:"name,omitempty" yaml:"name,omitempty"`
	City            string               `json:"city" yaml:"city"`
	Region          string               `json:"region,omitempty" yaml:"region,omitempty"`
	AltCities       []string             `json:"alt_cities,omitempty" yaml:"alt_cities,omitempty"`
	ExperienceYears int                  `json:"experience_years" yaml:"experience_years"`
	Budget          BudgetRange          `json:"budget" yaml:"budget"`
	Skills          []string             `json:"skills,omitempty" yaml:"skills,omitempty"`
	StyleTags       []string             `json:"style_tags,omitempty" yaml:"style_tags,omitempty"`
	Availability    []AvailabilityWindow `json:"availability,omitempty" yaml:"availability,omitempty"`
	Rating          float64              `json:"rating,omitempty" yaml:"rating,omitempty"`
	Bio             string               `json:"bio,omitempty" yaml:"bio,omitempty"`
}

// ServesCity reports whether the reviewer works in the given city,
// either as home base or a declared alternative.
func (r *Reviewer) ServesCity(city string) bool {
	if strings.EqualFold(r.City, city) {
		return true
	}
	for _, alt := range r.AltCities {
		if strings.EqualFold(alt, city) {
			return true
		}
	}
	return false
}

// Validate checks the reviewer record for structural problems.
func (r *Reviewer) Validate() error {
	if r.ID == "" {
		return eris.New("model: reviewer id is required")
	}
	if r.ExperienceYears < 0 {
		return eris.Errorf("model: reviewer %s has negative experience", r.ID)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return eris.Errorf("model: reviewer %s rating %.2f outside [0,5]", r.ID, r.Rating)
	}
	return nil
}
