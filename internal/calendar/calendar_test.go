package calendar

import "testing"

func TestIsTradingDay(t *testing.T) {
	cases := []struct {
		d    Day
		want bool
	}{
		{0, true},  // Monday
		{1, true},  // Tuesday
		{4, true},  // Friday
		{5, false}, // Saturday
		{6, false}, // Sunday
		{7, true},  // next Monday
		{12, false},
		{13, false},
	}
	for _, c := range cases {
		if got := IsTradingDay(c.d); got != c.want {
			t.Errorf("IsTradingDay(%d) = %v, want %v", c.d, got, c.want)
		}
	}
}

// dte(d, next_trading_day(d)) must always be 1.
func TestDTEOfNextTradingDayIsOne(t *testing.T) {
	for d := Day(0); d < 30; d++ {
		n := NextTradingDay(d)
		if got := DTE(d, n); got != 1 {
			t.Errorf("DTE(%d, next=%d) = %d, want 1", d, n, got)
		}
	}
}

// next_trading_day(next_trading_day(Friday)) must land on Tuesday.
func TestNextTradingDayTwiceFromFridayIsTuesday(t *testing.T) {
	friday := Day(4)
	saturday := NextTradingDay(friday)
	if saturday != 7 {
		t.Fatalf("next_trading_day(Friday) = %d, want Monday(7)", saturday)
	}
	tuesday := NextTradingDay(saturday)
	if tuesday != 8 {
		t.Fatalf("next_trading_day(next_trading_day(Friday)) = %d, want Tuesday(8)", tuesday)
	}
}

func TestExpirationDayCountsTradingDaysOnly(t *testing.T) {
	// entry = Monday(0), dte=5 trading days -> next Monday(7)
	exp := ExpirationDay(0, 5)
	if exp != 7 {
		t.Fatalf("ExpirationDay(0, 5) = %d, want 7", exp)
	}
}

func TestDTEZeroOnExpirationDay(t *testing.T) {
	if got := DTE(10, 10); got != 0 {
		t.Fatalf("DTE(10,10) = %d, want 0", got)
	}
}

func TestSnapModes(t *testing.T) {
	available := []Day{2, 5, 9}

	if got, ok := Snap(5, available, MatchExact); !ok || got != 5 {
		t.Fatalf("MatchExact(5) = %d,%v", got, ok)
	}
	if _, ok := Snap(4, available, MatchExact); ok {
		t.Fatalf("MatchExact(4) should not match")
	}
	if got, ok := Snap(6, available, MatchLower); !ok || got != 5 {
		t.Fatalf("MatchLower(6) = %d,%v", got, ok)
	}
	if got, ok := Snap(6, available, MatchHigher); !ok || got != 9 {
		t.Fatalf("MatchHigher(6) = %d,%v", got, ok)
	}
	if got, ok := Snap(6, available, MatchNearest); !ok || got != 5 {
		t.Fatalf("MatchNearest(6) = %d,%v", got, ok)
	}
	if got, ok := Snap(8, available, MatchNearest); !ok || got != 9 {
		t.Fatalf("MatchNearest(8) = %d,%v", got, ok)
	}
}
