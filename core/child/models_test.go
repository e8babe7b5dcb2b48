package child

import (
	"testing"
	"time"
)

func TestChild_AgeMonths(t *testing.T) {
	kid := Child{BirthDate: time.Date(2020, 5, 15, 0, 0, 0, 0, time.UTC)}
	tests := []struct {
		name string
		kid  Child
		at   time.Time
		want int
	}{
		{name: "no birth date", kid: Child{}, at: time.Now(), want: 0},
		{name: "not born yet", kid: kid, at: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "day before 1st birthday", kid: kid, at: time.Date(2021, 5, 14, 0, 0, 0, 0, time.UTC), want: 11},
		{name: "1st birthday", kid: kid, at: time.Date(2021, 5, 15, 0, 0, 0, 0, time.UTC), want: 12},
		{name: "across years", kid: kid, at: time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC), want: 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kid.AgeMonths(tt.at); got != tt.want {
				t.Errorf("AgeMonths() = %v, want %v", got, tt.want)
			}
		})
	}
}
