package pay

import (
	"fmt"
	"time"

	"github.com/warp/roster-engine/calendar"
)

// =============================================================================
// DAY TYPE - Which rate column a shift is paid from
// =============================================================================

// DayKind is the pay classification of a calendar date.
type DayKind string

const (
	KindPublicHoliday DayKind = "PublicHoliday"
	KindSunday        DayKind = "Sunday"
	KindSaturday      DayKind = "Saturday"
	KindWeekday       DayKind = "Weekday"
)

// DefaultHolidayName is used when a date is a holiday but no details are found.
const DefaultHolidayName = "Public Holiday"

// DayType is exactly one of PublicHoliday(name), Sunday, Saturday or Weekday.
// HolidayName is set only for public holidays.
type DayType struct {
	Kind        DayKind
	HolidayName string
}

var (
	Sunday   = DayType{Kind: KindSunday}
	Saturday = DayType{Kind: KindSaturday}
	Weekday  = DayType{Kind: KindWeekday}
)

func PublicHoliday(name string) DayType {
	if name == "" {
		name = DefaultHolidayName
	}
	return DayType{Kind: KindPublicHoliday, HolidayName: name}
}

// Label is the human-readable day type, as stored on shifts.
func (d DayType) Label() string {
	switch d.Kind {
	case KindPublicHoliday:
		return "Public Holiday"
	case KindSunday:
		return "Sunday"
	case KindSaturday:
		return "Saturday"
	default:
		return "Weekday"
	}
}

func (d DayType) String() string {
	if d.Kind == KindPublicHoliday {
		return fmt.Sprintf("%s (%s)", d.Label(), d.HolidayName)
	}
	return d.Label()
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// HolidayLookup is the part of calendar.Calculator the classifier needs.
type HolidayLookup interface {
	IsPublicHoliday(date time.Time, state string) (bool, error)
	HolidayDetails(date time.Time, state string) (*calendar.Holiday, error)
}

// Classifier maps instants to day types. Instants are converted to Location
// before their calendar date is taken, so a shift starting at 23:30 local
// time is classified by the local date, not the UTC one.
type Classifier struct {
	Holidays HolidayLookup
	Location *time.Location
}

// NewClassifier creates a classifier. A nil location means UTC.
func NewClassifier(holidays HolidayLookup, loc *time.Location) *Classifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Classifier{Holidays: holidays, Location: loc}
}

// Classify applies holiday > Sunday > Saturday > weekday. A holiday that falls
// on a weekend is still a holiday.
func (c *Classifier) Classify(at time.Time, state string) (DayType, error) {
	local := at.In(c.Location)

	isHoliday, err := c.Holidays.IsPublicHoliday(local, state)
	if err != nil {
		return DayType{}, err
	}
	if isHoliday {
		details, err := c.Holidays.HolidayDetails(local, state)
		if err != nil {
			return DayType{}, err
		}
		if details == nil {
			return PublicHoliday(DefaultHolidayName), nil
		}
		return PublicHoliday(details.Name), nil
	}

	switch local.Weekday() {
	case time.Sunday:
		return Sunday, nil
	case time.Saturday:
		return Saturday, nil
	}
	return Weekday, nil
}

// LocalDate returns the calendar date of at in the classifier's location.
func (c *Classifier) LocalDate(at time.Time) string {
	return calendar.FormatDate(at.In(c.Location))
}
