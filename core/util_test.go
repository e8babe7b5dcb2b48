package core

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "Sunny Kids", want: "sunny-kids"},
		{in: "  Éveil & Jeux  ", want: "eveil-jeux"},
		{in: "Center #2 -- Gangnam", want: "center-2-gangnam"},
		{in: "해피 Kids 센터", want: "kids"},
		{in: "---", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanOrderings(t *testing.T) {
	got := CleanOrderings(
		[]DBOrdering{{Field: "name", Ascending: true}, {Field: "password_hash"}, {Field: "Created_At"}, {Field: "name; DROP"}},
		"name", "created_at",
	)
	want := []DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}
	if len(got) != len(want) {
		t.Fatalf("CleanOrderings() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CleanOrderings()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if clause := OrderByClause(got, "id"); clause != " ORDER BY name ASC, created_at DESC" {
		t.Errorf("OrderByClause() = %q", clause)
	}
	if clause := OrderByClause(nil, "id"); clause != " ORDER BY id" {
		t.Errorf("OrderByClause(nil) = %q", clause)
	}
}
