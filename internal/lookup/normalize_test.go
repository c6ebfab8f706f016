package lookup

import "testing"

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Wire", "wire"},
		{"A Touch of Frost", "touch of frost"},
		{"Law & Order", "law and order"},
		{"Star Trek: The Next Generation", "star trek next generation"},
		{"Amélie's Café", "amelies cafe"},
		{"M*A*S*H", "mash"},
		{"S.W.A.T.", "swat"},
		{"Mr. Robot", "mr robot"},
		{`"Quoted" Mini`, "quoted mini"},
		{"La Casa de Papel", "casa de papel"},
		{"Das Boot", "boot"},
		{"The", "the"},
		{"I Love Lucy", "i love lucy"},
		{"Don’t Trust the B---- in Apartment 23", "dont trust the b in apartment 23"},
		{"  Extra   Spaces  ", "extra spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := CleanTitle(tt.input)
			if got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
	}{
		{"The Office", Query{Title: "The Office"}},
		{"The Office (2005)", Query{Title: "The Office", Year: 2005}},
		{"The Office 2001", Query{Title: "The Office", Year: 2001}},
		{"The Office (TV Series 2005–2013)", Query{Title: "The Office", Year: 2005}},
		{"Chernobyl (TV Mini Series 2019)", Query{Title: "Chernobyl", Year: 2019}},
		{"Chernobyl (TV Mini Series)", Query{Title: "Chernobyl"}},
		{"Dracula (II) (2020)", Query{Title: "Dracula", Year: 2020}},
		{"Skins (2011- )", Query{Title: "Skins", Year: 2011}},
		{"1883", Query{Title: "1883"}},
		{"Catch-22", Query{Title: "Catch-22"}},
		{"Room 9999", Query{Title: "Room 9999"}},
		{"Pilot (Part 1)", Query{Title: "Pilot (Part 1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseQuery(tt.input)
			if got != tt.want {
				t.Errorf("ParseQuery(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
