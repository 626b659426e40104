package detect

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"喔喔", "喔喔"},
		{"哦哦", "喔喔"},
		{" 喔\t哦\n", "喔喔"},
		{"a b　c", "abc"}, // ideographic space is whitespace
		{"哈 哈", "哈哈"},
		{"hello world", "helloworld"},
		{"\xff\xff", ""},
		{"a\xffb", "ab"},
		{"\uFFFD", "\uFFFD"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		hasText  bool
		kind     Kind
		reaction string
	}{
		{"no text", "", false, NoOpinion, ""},
		{"empty text", "", true, EmptyMatch, ""},
		{"canonical pair", "喔喔", true, Match, ReactionFire},
		{"mixed class members", "喔哦", true, Match, ReactionFire},
		{"other member first", "哦喔", true, Match, ReactionFire},
		{"whitespace between", "喔 \n 喔 后面随便", true, Match, ReactionFire},
		{"other repeated char", "哈哈哈", true, Match, ReactionThinking},
		{"ascii pair", "aa", true, EmptyMatch, ""},
		{"differ", "喔b", true, EmptyMatch, ""},
		{"single char", "喔", true, EmptyMatch, ""},
		{"only whitespace", "   ", true, EmptyMatch, ""},
		{"trailing content ignored", "喔喔 hello", true, Match, ReactionFire},
		{"match late in text", "ok 喔喔", true, EmptyMatch, ""},
		{"invalid utf8", "\xff\xff", true, EmptyMatch, ""},
		{"invalid bytes between pair", "喔\xff喔", true, Match, ReactionFire},
		{"replacement char pair", "\uFFFD\uFFFD", true, Match, ReactionThinking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, tt.hasText)
			if got.Kind != tt.kind {
				t.Fatalf("Classify(%q).Kind = %v, want %v", tt.text, got.Kind, tt.kind)
			}
			if got.Reaction != tt.reaction {
				t.Errorf("Classify(%q).Reaction = %q, want %q", tt.text, got.Reaction, tt.reaction)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []string{"喔喔", "哦 哦", "aa", "喔", "🙂🙂", ""}
	for _, in := range inputs {
		first := Classify(in, true)
		for i := 0; i < 5; i++ {
			if again := Classify(in, true); again != first {
				t.Fatalf("Classify(%q) not deterministic: %+v vs %+v", in, first, again)
			}
		}
	}
}

func TestResultReactions(t *testing.T) {
	if got := Classify("喔喔", true).Reactions(); len(got) != 1 || got[0] != ReactionFire {
		t.Errorf("match reactions = %v, want [%s]", got, ReactionFire)
	}
	empty := Classify("aa", true).Reactions()
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty match reactions = %#v, want non-nil empty slice", empty)
	}
	if Classify("", false).IsMatch() {
		t.Error("no-opinion result reported as match")
	}
}
