package indicator

// ToWeekly folds daily bars into weekly bars. A week opens with its
// first trading day's open and closes with its last trading day's
// close; high/low span the week and volume is summed. The weekly bar
// carries the date of the week's first trading day.
func ToWeekly(daily []Bar) []Bar {
	if len(daily) == 0 {
		return nil
	}
	weekly := make([]Bar, 0, len(daily)/5+1)
	var cur Bar
	var curYear, curWeek int
	open := false

	for _, b := range daily {
		y, w := b.Date.ISOWeek()
		if !open || y != curYear || w != curWeek {
			if open {
				weekly = append(weekly, cur)
			}
			cur = b
			curYear, curWeek = y, w
			open = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	weekly = append(weekly, cur)
	return weekly
}
