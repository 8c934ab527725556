package estimate

import (
	"errors"
	"math"

	"github.com/dustin/go-humanize"
)

type ProjectType string

const (
	Kitchen     ProjectType = "kitchen"
	Bathroom    ProjectType = "bathroom"
	Addition    ProjectType = "addition"
	WholeHome   ProjectType = "wholeHome"
	Microcement ProjectType = "microcement"
)

type Quality string

const (
	Economy Quality = "economy"
	Mid     Quality = "mid"
	Premium Quality = "premium"
	Luxury  Quality = "luxury"
)

const (
	MinSize = 50
	MaxSize = 5000

	// UpperBoundFactor widens the estimate into the displayed range.
	UpperBoundFactor = 1.3
)

var (
	ErrUnknownProjectType = errors.New("unknown project type")
	ErrUnknownQuality     = errors.New("unknown quality tier")
	ErrSizeOutOfRange     = errors.New("size out of range")
)

// Base construction cost per square foot.
var baseRates = map[ProjectType]float64{
	Kitchen:     300,
	Bathroom:    250,
	Addition:    400,
	WholeHome:   350,
	Microcement: 45,
}

var qualityMultipliers = map[Quality]float64{
	Economy: 0.8,
	Mid:     1,
	Premium: 1.5,
	Luxury:  2.2,
}

var projectLabels = map[ProjectType]string{
	Kitchen:     "Kitchen Remodel",
	Bathroom:    "Bathroom Renovation",
	Addition:    "Home Addition",
	WholeHome:   "Whole Home Remodel",
	Microcement: "Microcement Finishes",
}

// ProjectTypes and Qualities are in display order.
var (
	ProjectTypes = []ProjectType{Kitchen, Bathroom, Addition, WholeHome, Microcement}
	Qualities    = []Quality{Economy, Mid, Premium, Luxury}
)

func (p ProjectType) Valid() bool {
	_, ok := baseRates[p]
	return ok
}

func (p ProjectType) Label() string {
	return projectLabels[p]
}

func (p ProjectType) BaseRate() float64 {
	return baseRates[p]
}

func (q Quality) Valid() bool {
	_, ok := qualityMultipliers[q]
	return ok
}

func (q Quality) Multiplier() float64 {
	return qualityMultipliers[q]
}

type Inputs struct {
	ProjectType ProjectType `json:"projectType"`
	SizeSqFt    int         `json:"size"`
	Quality     Quality     `json:"quality"`
}

func DefaultInputs() Inputs {
	return Inputs{ProjectType: Kitchen, SizeSqFt: 150, Quality: Mid}
}

func (in Inputs) Validate() error {
	if !in.ProjectType.Valid() {
		return ErrUnknownProjectType
	}
	if !in.Quality.Valid() {
		return ErrUnknownQuality
	}
	if in.SizeSqFt < MinSize || in.SizeSqFt > MaxSize {
		return ErrSizeOutOfRange
	}
	return nil
}

type Estimate struct {
	Inputs  Inputs `json:"inputs"`
	Low     int    `json:"low"`
	High    int    `json:"high"`
	Display string `json:"display"`
}

// Calculate derives the price range for in. Low is rate*size*multiplier and
// High adds a fixed 30%, both rounded half away from zero.
func Calculate(in Inputs) (Estimate, error) {
	if err := in.Validate(); err != nil {
		return Estimate{}, err
	}
	low := int(math.Round(in.ProjectType.BaseRate() * float64(in.SizeSqFt) * in.Quality.Multiplier()))
	high := int(math.Round(float64(low) * UpperBoundFactor))
	return Estimate{
		Inputs:  in,
		Low:     low,
		High:    high,
		Display: FormatRange(low, high),
	}, nil
}

func FormatRange(low, high int) string {
	return "$" + humanize.Comma(int64(low)) + " - $" + humanize.Comma(int64(high))
}
