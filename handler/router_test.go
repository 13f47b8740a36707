package handler

import "testing"

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs string
	}{
		{
			name:     "plain text is not a command",
			text:     "just chatting",
			wantCmd:  "",
			wantArgs: "just chatting",
		},
		{
			name:    "bare command",
			text:    "/recent",
			wantCmd: "/recent",
		},
		{
			name:     "command with args",
			text:     "/apoll Best fruit?;Apple;Banana",
			wantCmd:  "/apoll",
			wantArgs: "Best fruit?;Apple;Banana",
		},
		{
			name:    "botname suffix stripped",
			text:    "/balance@alphabot",
			wantCmd: "/balance",
		},
		{
			name:     "botname suffix with args",
			text:     "/apoll@alphabot stop",
			wantCmd:  "/apoll",
			wantArgs: "stop",
		},
		{
			name:     "newline separates command from args",
			text:     "/feedback\n3 great mix overall",
			wantCmd:  "/feedback",
			wantArgs: "3 great mix overall",
		},
		{
			name:     "surrounding whitespace trimmed",
			text:     "  /post https://example.com/track  ",
			wantCmd:  "/post",
			wantArgs: "https://example.com/track",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := splitCommand(tt.text)
			if cmd != tt.wantCmd || args != tt.wantArgs {
				t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)",
					tt.text, cmd, args, tt.wantCmd, tt.wantArgs)
			}
		})
	}
}
