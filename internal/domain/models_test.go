package domain

import "testing"

func TestPhotoValid(t *testing.T) {
	cases := []struct {
		name  string
		photo Photo
		want  bool
	}{
		{"both urls", Photo{ImageURL: "https://img/a.jpg", StoryURL: "https://story/a"}, true},
		{"missing image", Photo{StoryURL: "https://story/a"}, false},
		{"missing story", Photo{ImageURL: "https://img/a.jpg"}, false},
		{"empty", Photo{}, false},
	}
	for _, tc := range cases {
		if got := tc.photo.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPhotoLinkText(t *testing.T) {
	base := Photo{ImageURL: "https://img/a.jpg", StoryURL: "https://story/a"}

	if got := base.LinkText(); got != "https://story/a" {
		t.Errorf("no description or credit: got %q", got)
	}

	withCredit := base
	withCredit.Credit = Text("Jane Doe")
	if got := withCredit.LinkText(); got != "Jane Doe" {
		t.Errorf("credit only: got %q", got)
	}

	withDesc := base
	withDesc.Description = Text("Harbour at dawn")
	if got := withDesc.LinkText(); got != "Harbour at dawn" {
		t.Errorf("description only: got %q", got)
	}

	both := withDesc
	both.Credit = Text("Jane Doe")
	if got := both.LinkText(); got != "Harbour at dawn (Jane Doe)" {
		t.Errorf("both: got %q", got)
	}
}

func TestPhotoJSONNullables(t *testing.T) {
	p := Photo{ImageURL: "i", StoryURL: "s"}
	want := `{"image_url":"i","story_url":"s","description":null,"credit":null}`
	if got := p.JSON(); got != want {
		t.Fatalf("JSON() = %s, want %s", got, want)
	}
}

func TestPageJSON(t *testing.T) {
	if got := PageJSON(nil); got != "[]" {
		t.Fatalf("empty page = %s", got)
	}
	page := []Photo{
		{ImageURL: "i1", StoryURL: "s1"},
		{ImageURL: "i2", StoryURL: "s2", Credit: Text("c")},
	}
	want := `[{"image_url":"i1","story_url":"s1","description":null,"credit":null},` +
		`{"image_url":"i2","story_url":"s2","description":null,"credit":"c"}]`
	if got := PageJSON(page); got != want {
		t.Fatalf("PageJSON = %s, want %s", got, want)
	}
}

func TestTextEmptyIsNil(t *testing.T) {
	if Text("") != nil {
		t.Fatalf("Text(\"\") should be nil")
	}
	if v := Text("x"); v == nil || *v != "x" {
		t.Fatalf("Text(\"x\") = %v", v)
	}
}
