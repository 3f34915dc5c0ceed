package match

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"Email", "Emal", 1},
		{"flaw", "lawn", 2},
		{"héllo", "hello", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := distance([]rune(tt.a), []rune(tt.b)); got != tt.want {
				t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}

			if got := distance([]rune(tt.b), []rune(tt.a)); got != tt.want {
				t.Errorf("distance(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"OrderID", "orderid"},
		{"order_id", "orderid"},
		{"catalog.Person -> catalog.PersonDTO", "catalogpersoncatalogpersondto"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := fold(tt.in); got != tt.want {
			t.Errorf("fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClosest(t *testing.T) {
	members := []string{"ID", "Name", "Email", "Age", "OrgName"}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"Email", "Email", true},
		{"Emal", "Email", true},
		{"email", "Email", true},
		{"org_name", "OrgName", true},
		{"Salary", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Closest(tt.name, members)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Closest(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHint(t *testing.T) {
	pairs := []string{"catalog.Order -> catalog.OrderDTO", "catalog.Person -> catalog.PersonDTO"}

	if got, want := Hint("catalog.Person -> catalog.PersonDto", pairs), ` (did you mean "catalog.Person -> catalog.PersonDTO"?)`; got != want {
		t.Errorf("Hint = %q, want %q", got, want)
	}

	if got := Hint(pairs[0], pairs); got != "" {
		t.Errorf("Hint of an exact name = %q, want empty", got)
	}

	if got := Hint("x.Y -> x.Z", pairs); got != "" {
		t.Errorf("Hint of a distant name = %q, want empty", got)
	}
}
