package reactor

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		want   Command
		wantOK bool
	}{
		{"/help", CommandHelp, true},
		{"/stats", CommandStats, true},
		{"/stats@AgdaBot", CommandStats, true},
		{"/stats@agdabot extra args", CommandStats, true},
		{"/stats@otherbot", 0, false},
		{"/unknown", 0, false},
		{"/", 0, false},
		{"stats", 0, false},
		{"喔喔 /stats", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.text, "agdabot")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCommand(%q) = (%v, %v), want (%v, %v)", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCommandDescriptions(t *testing.T) {
	want := "支持以下命令:\n\n/help — 显示帮助信息.\n/stats — 查看阿鸽打统计."
	if got := CommandDescriptions(); got != want {
		t.Errorf("CommandDescriptions() =\n%q\nwant\n%q", got, want)
	}
	if CommandDescriptions() != CommandDescriptions() {
		t.Error("descriptions must be deterministic")
	}
}

func TestCommandsIsACopy(t *testing.T) {
	cmds := Commands()
	if len(cmds) != 2 || cmds[0] != CommandHelp || cmds[1] != CommandStats {
		t.Fatalf("Commands() = %v", cmds)
	}
	cmds[0] = CommandStats
	if Commands()[0] != CommandHelp {
		t.Error("Commands() exposed internal slice")
	}
}

func TestLookupCommand(t *testing.T) {
	for _, c := range Commands() {
		got, ok := LookupCommand(c.Name())
		if !ok || got != c {
			t.Errorf("LookupCommand(%q) = (%v, %v)", c.Name(), got, ok)
		}
	}
	if _, ok := LookupCommand("Stats"); ok {
		t.Error("lookup should be case-sensitive")
	}
}
