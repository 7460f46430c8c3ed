package weather

import (
	"fmt"
	"time"
)

var (
	frenchWeekdays = [...]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}
	frenchMonths   = [...]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."}
)

// DayLabel renders a short French date such as "lun. 3 févr.".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%s %d %s", frenchWeekdays[t.Weekday()], t.Day(), frenchMonths[t.Month()-1])
}
