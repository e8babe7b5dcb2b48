package dummydb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/traffic"
	"github.com/trezcool/kidcare/core/user"
)

type (
	// DB is an in-memory database. Each table is guarded by its own lock.
	DB struct {
		user       *table[user.User]
		center     *table[center.Center]
		therapist  *table[therapist.Therapist]
		child      *table[child.Child]
		schedule   *table[schedule.Schedule]
		counseling *table[counseling.Log]
		assessment *table[assessment.Assessment]
		payment    *table[payment.Payment]
		visit      *table[traffic.Visit]
		push       *table[push.Subscription]
	}

	table[T any] struct {
		sync.RWMutex
		rows map[string]*T
	}
)

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func Open() (*DB, error) {
	return &DB{
		user:       newTable[user.User](),
		center:     newTable[center.Center](),
		therapist:  newTable[therapist.Therapist](),
		child:      newTable[child.Child](),
		schedule:   newTable[schedule.Schedule](),
		counseling: newTable[counseling.Log](),
		assessment: newTable[assessment.Assessment](),
		payment:    newTable[payment.Payment](),
		visit:      newTable[traffic.Visit](),
		push:       newTable[push.Subscription](),
	}, nil
}

// all returns copies of the rows matching `keep`. Callers hold the lock.
func (t *table[T]) all(keep func(*T) bool) []T {
	rows := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		if keep == nil || keep(r) {
			rows = append(rows, *r)
		}
	}
	return rows
}

// orderBy sorts rows by the first ordering whose field has an accessor in `fields`; `fallback` applies otherwise.
func orderBy[T any](rows []T, ordering []core.DBOrdering, fields map[string]func(a, b T) int, fallback func(a, b T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(rows[i], rows[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		if fallback != nil {
			return fallback(rows[i], rows[j]) < 0
		}
		return false
	})
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// inRange reports whether `t` is in [from, to). Zero bounds are open.
func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	cp := make([]string, len(ss))
	copy(cp, ss)
	return cp
}
