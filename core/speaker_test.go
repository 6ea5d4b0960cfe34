package core

import "testing"

func TestSpeakerStringFormatsWithAndWithoutRole(t *testing.T) {
	cases := []struct {
		name string
		s    Speaker
		want string
	}{
		{"system", System(), "System"},
		{"user with role", User("alice", "engineer"), "alice (engineer)"},
		{"user without role", User("bob", ""), "bob"},
		{"agent with icon and role", NewAgentSpeaker("researcher", "analyst", "🔍"), "researcher (analyst)"},
	}
	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("%s: String() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestSpeakerEqualIgnoresRoleAndIcon(t *testing.T) {
	a := NewAgentSpeaker("researcher", "analyst", "🔍")
	b := NewAgentSpeaker("researcher", "different-role", "")
	if !a.Equal(b) {
		t.Error("expected speakers with same kind+name to be equal regardless of role/icon")
	}

	c := User("researcher", "analyst")
	if a.Equal(c) {
		t.Error("expected speakers with different kinds not to be equal")
	}
}
