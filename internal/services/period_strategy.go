// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for budget periods. Each period
// kind (monthly, yearly, one-time) has its own strategy that decides which
// transactions count toward a budget at a given evaluation date.

package services

import (
	"fmt"

	"fintrack/internal/core"
)

// PeriodStrategy is the strategy interface for a budget period kind.
type PeriodStrategy interface {
	// Window returns the half-open date range that is active for b on date on.
	Window(b core.Budget, on core.Date) core.DateWindow
	// Label returns the human readable name of that range.
	Label(b core.Budget, on core.Date) string
}

// MonthlyPeriod covers the calendar month of the evaluation date.
type MonthlyPeriod struct{}

func (MonthlyPeriod) Window(_ core.Budget, on core.Date) core.DateWindow {
	from := core.NewDate(on.Year(), on.Month(), 1)
	return core.DateWindow{From: from, Until: core.DateOf(from.AddDate(0, 1, 0))}
}

// Label returns e.g. "February 2026".
func (MonthlyPeriod) Label(_ core.Budget, on core.Date) string {
	return on.Format("January 2006")
}

// YearlyPeriod covers the calendar year of the evaluation date.
type YearlyPeriod struct{}

func (YearlyPeriod) Window(_ core.Budget, on core.Date) core.DateWindow {
	return core.DateWindow{
		From:  core.NewDate(on.Year(), 1, 1),
		Until: core.NewDate(on.Year()+1, 1, 1),
	}
}

func (YearlyPeriod) Label(_ core.Budget, on core.Date) string {
	return on.Format("2006")
}

// OneTimePeriod counts everything from the budget start date on, whatever the
// evaluation date.
type OneTimePeriod struct{}

func (OneTimePeriod) Window(b core.Budget, _ core.Date) core.DateWindow {
	return core.DateWindow{From: b.StartDate}
}

// Label returns e.g. "Since Mar 1, 2026".
func (OneTimePeriod) Label(b core.Budget, _ core.Date) string {
	return "Since " + b.StartDate.Format("Jan 2, 2006")
}

// periodStrategies maps period kinds to their strategies.
var periodStrategies = map[core.PeriodKind]PeriodStrategy{
	core.Monthly: MonthlyPeriod{},
	core.Yearly:  YearlyPeriod{},
	core.OneTime: OneTimePeriod{},
}

// GetPeriodStrategy returns the strategy for a period kind.
// Returns an error wrapping core.ErrInvalidPeriod if the kind is not supported.
func GetPeriodStrategy(kind core.PeriodKind) (PeriodStrategy, error) {
	s, ok := periodStrategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(kind))
	}
	return s, nil
}

// RegisterPeriodStrategy installs or replaces the strategy for a period kind.
// It is not safe for use concurrently with evaluations; call it during init.
func RegisterPeriodStrategy(kind core.PeriodKind, s PeriodStrategy) {
	periodStrategies[kind] = s
}
