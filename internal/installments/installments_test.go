package installments

import (
	"slices"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchedule_EqualSplit(t *testing.T) {
	got := slices.Collect(Schedule(480, 4, 5, date(2024, time.January, 1)))

	if len(got) != 4 {
		t.Fatalf("expected 4 installments, got %d", len(got))
	}
	months := []time.Month{time.January, time.February, time.March, time.April}
	for i, item := range got {
		if item.Amount != 120 {
			t.Errorf("installment %d amount = %v, want 120", i+1, item.Amount)
		}
		if want := date(2024, months[i], 5); !item.DueDate.Equal(want) {
			t.Errorf("installment %d due = %v, want %v", i+1, item.DueDate, want)
		}
		if item.Number != i+1 {
			t.Errorf("installment %d number = %d", i+1, item.Number)
		}
	}
}

func TestSchedule_RemainderOnLastInstallment(t *testing.T) {
	got := slices.Collect(Schedule(100, 3, 10, date(2024, time.January, 1)))

	if len(got) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(got))
	}
	if got[0].Amount != 33.33 || got[1].Amount != 33.33 || got[2].Amount != 33.34 {
		t.Fatalf("unexpected amounts: %+v", got)
	}
	if total := Total(Schedule(100, 3, 10, date(2024, time.January, 1))); total != 100 {
		t.Fatalf("total = %v, want 100", total)
	}
}

func TestSchedule_NoScheduleOutsideCountRange(t *testing.T) {
	for _, count := range []int{-1, 0, 1, MaxCount + 1, 2_000_000_000} {
		if got := slices.Collect(Schedule(480, count, 5, date(2024, time.January, 1))); len(got) != 0 {
			t.Fatalf("count=%d: expected empty schedule, got %+v", count, got)
		}
	}
}

func TestSchedule_RollsOverYear(t *testing.T) {
	got := slices.Collect(Schedule(400, 4, 15, date(2024, time.November, 20)))

	want := []time.Time{
		date(2024, time.November, 15),
		date(2024, time.December, 15),
		date(2025, time.January, 15),
		date(2025, time.February, 15),
	}
	for i := range want {
		if !got[i].DueDate.Equal(want[i]) {
			t.Fatalf("installment %d due = %v, want %v", i+1, got[i].DueDate, want[i])
		}
	}
}

func TestSchedule_ClampsToMonthEnd(t *testing.T) {
	got := slices.Collect(Schedule(300, 3, 31, date(2024, time.January, 1)))

	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
	}
	for i := range want {
		if !got[i].DueDate.Equal(want[i]) {
			t.Fatalf("installment %d due = %v, want %v", i+1, got[i].DueDate, want[i])
		}
	}
}

func TestSchedule_IsRestartable(t *testing.T) {
	seq := Schedule(480, 4, 5, date(2024, time.January, 1))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Fatalf("ranging twice gave different schedules:\n%+v\n%+v", first, second)
	}
}

func TestSchedule_StopsEarly(t *testing.T) {
	n := 0
	for range Schedule(480, 12, 5, date(2024, time.January, 1)) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2, got %d", n)
	}
}
