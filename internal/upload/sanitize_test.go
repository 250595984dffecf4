package upload

import "testing"

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mozilla5.0", "Mozilla5.0"},
		{"en-US", "en_US"},
		{"192.168.1.1", "192.168.1.1"},
		{"a=b|c,d", "a_b_c_d"},
		{"safe_value:1.2", "safe_value:1.2"},
		{"spaces here", "spaces_here"},
		{"", ""},
		{"émoji🎉", "_moji_"},
	}

	for _, tt := range tests {
		if got := SanitizeValue(tt.in); got != tt.want {
			t.Errorf("SanitizeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinTags(t *testing.T) {
	got := JoinTags([]string{"style_glow_ai_app", "go client", "a,b"})
	want := "style_glow_ai_app,go_client,a_b"
	if got != want {
		t.Errorf("JoinTags() = %q, want %q", got, want)
	}
}

func TestJoinContext(t *testing.T) {
	keys := []string{"anon_id", "client_ip", "user_agent", "language"}
	values := map[string]string{
		"anon_id":    "abc-123",
		"user_agent": "Mozilla/5.0 (X11)",
		"language":   "",
	}

	got := JoinContext(keys, values)
	want := "anon_id=abc_123|user_agent=Mozilla_5.0__X11_"
	if got != want {
		t.Errorf("JoinContext() = %q, want %q", got, want)
	}
}

func TestJoinContext_NoInjection(t *testing.T) {
	// Pipe and equals in values must not create extra context fields.
	got := JoinContext([]string{"k"}, map[string]string{"k": "v|evil=1"})
	want := "k=v_evil_1"
	if got != want {
		t.Errorf("JoinContext() = %q, want %q", got, want)
	}
}
