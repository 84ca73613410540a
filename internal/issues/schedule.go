// This file implements the Strategy Pattern for repeating transfer schedules.
// Each repeat unit (daily, weekly, monthly) has its own stepper that
// computes the n-th occurrence of a schedule.

package issues

import (
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// MaxScheduleSteps bounds the due date search of a single schedule.
const MaxScheduleSteps = 100_000

var ErrScheduleTooLong = errors.New("repeating transfer schedule exceeds step limit")

// Stepper is the strategy interface for schedule arithmetic.
type Stepper interface {
	// Occurrence returns the date of the n-th occurrence (n >= 0) of a
	// schedule starting on start and repeating every count units.
	Occurrence(start core.Date, count, n int) core.Date
}

// DailyStepper steps by whole days.
type DailyStepper struct{}

func (DailyStepper) Occurrence(start core.Date, count, n int) core.Date {
	return start.AddDays(count * n)
}

// WeeklyStepper steps by seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Occurrence(start core.Date, count, n int) core.Date {
	return start.AddDays(7 * count * n)
}

// MonthlyStepper steps by calendar months. Occurrences keep the day of
// month of start, clamped to the last day of shorter months.
type MonthlyStepper struct{}

func (MonthlyStepper) Occurrence(start core.Date, count, n int) core.Date {
	months := start.Month() - 1 + count*n
	year := start.Year() + months/12
	month := months%12 + 1

	day := start.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// steppers maps repeat units to their strategy.
var steppers = map[core.DateRepeat]Stepper{
	core.RepeatDaily:   DailyStepper{},
	core.RepeatWeekly:  WeeklyStepper{},
	core.RepeatMonthly: MonthlyStepper{},
}

// GetStepper returns the stepper for a repeat unit.
func GetStepper(repeat core.DateRepeat) (Stepper, error) {
	s, ok := steppers[repeat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDateRepeat, repeat)
	}
	return s, nil
}

// RegisterStepper installs a stepper for a repeat unit. It is not safe to
// call concurrently with schedule evaluation.
func RegisterStepper(repeat core.DateRepeat, s Stepper) {
	steppers[repeat] = s
}

// LatestDue returns the latest occurrence of rt on or before today. The
// boolean is false when the schedule has not started yet.
func LatestDue(rt core.RepeatingTransfer, today core.Date) (core.Date, bool, error) {
	if rt.RepeatCount < 1 {
		return core.Date{}, false, fmt.Errorf("%w: repeat_count %d", core.ErrInvalidRepetition, rt.RepeatCount)
	}
	stepper, err := GetStepper(rt.Repeat)
	if err != nil {
		return core.Date{}, false, err
	}
	if rt.Start.After(today) {
		return core.Date{}, false, nil
	}

	due := rt.Start
	for n := 1; ; n++ {
		if n > MaxScheduleSteps {
			return core.Date{}, false, fmt.Errorf("%w: %s every %d %s since %s",
				ErrScheduleTooLong, rt.FromAccountID, rt.RepeatCount, rt.Repeat, rt.Start)
		}
		next := stepper.Occurrence(rt.Start, rt.RepeatCount, n)
		if next.After(today) {
			return due, true, nil
		}
		due = next
	}
}
