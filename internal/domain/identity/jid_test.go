package identity

import "testing"

func TestToJID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"51999888777", "51999888777@s.whatsapp.net"},
		{"+51 999 888 777", "51999888777@s.whatsapp.net"},
		{"51999888777@s.whatsapp.net", "51999888777@s.whatsapp.net"},
		{"12345@lid", "12345@lid"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ToJID(c.in); got != c.want {
			t.Errorf("ToJID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToGroupJID(t *testing.T) {
	if got := ToGroupJID("120363041234567890"); got != "120363041234567890@g.us" {
		t.Errorf("ToGroupJID = %q", got)
	}
	if got := ToGroupJID("120363041234567890@g.us"); got != "120363041234567890@g.us" {
		t.Errorf("ToGroupJID passthrough = %q", got)
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("51999888777@s.whatsapp.net"); got != "51999888777" {
		t.Errorf("Display = %q", got)
	}
	if got := Display("123@g.us"); got != "123" {
		t.Errorf("Display group = %q", got)
	}
}

func TestMentionsIdentifier(t *testing.T) {
	mentions := []string{"51999888777@lid", "444@s.whatsapp.net"}

	if !MentionsIdentifier(mentions, "51999888777@s.whatsapp.net") {
		t.Error("expected match across domains by numeric part")
	}
	if MentionsIdentifier(mentions, "555@s.whatsapp.net") {
		t.Error("expected no match for absent number")
	}
	if MentionsIdentifier(mentions, "") {
		t.Error("expected empty identifier to never match")
	}
}
