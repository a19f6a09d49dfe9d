// Package installments splits a settlement total into monthly installments.
package installments

import (
	"iter"
	"math"
	"time"
)

// MaxCount is the largest number of installments a note may be split into.
const MaxCount = 12

// Installment is one dated payment of a schedule.
type Installment struct {
	Number  int       `json:"number"`
	Amount  float64   `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// Schedule returns the installments splitting total into count payments due on
// dayOfMonth, starting in the month of start. The sequence is empty when count <= 1
// or count > MaxCount.
//
// Each installment is total/count rounded to cents; the rounding remainder is carried
// by the last installment so the schedule always sums to total. The returned sequence
// holds no state and can be ranged over any number of times.
func Schedule(total float64, count, dayOfMonth int, start time.Time) iter.Seq[Installment] {
	return func(yield func(Installment) bool) {
		if count <= 1 || count > MaxCount || math.IsNaN(total) || math.IsInf(total, 0) {
			return
		}

		share := roundCents(total / float64(count))
		last := roundCents(total - share*float64(count-1))

		for i := 0; i < count; i++ {
			amount := share
			if i == count-1 {
				amount = last
			}
			item := Installment{
				Number:  i + 1,
				Amount:  amount,
				DueDate: DueDate(start, i, dayOfMonth),
			}
			if !yield(item) {
				return
			}
		}
	}
}

// DueDate returns day of the month offset months after start's month. Days past the
// end of that month are clamped to its last day; days below 1 become 1.
func DueDate(start time.Time, offset, day int) time.Time {
	first := time.Date(start.Year(), start.Month()+time.Month(offset), 1, 0, 0, 0, 0, start.Location())
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, start.Location()).Day()

	if day < 1 {
		day = 1
	}
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, start.Location())
}

// Total sums the amounts of a schedule.
func Total(seq iter.Seq[Installment]) float64 {
	var sum float64
	for item := range seq {
		sum += item.Amount
	}
	return roundCents(sum)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
