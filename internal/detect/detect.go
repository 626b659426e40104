package detect

import "unicode/utf8"

// Reaction emoji.
const (
	ReactionFire     = "🔥" // matched the canonical character
	ReactionThinking = "🤔" // matched some other repeated character
)

// Kind is the outcome class of a classification.
type Kind int

const (
	// NoOpinion means the message had no text; callers must leave any
	// existing state untouched.
	NoOpinion Kind = iota
	// EmptyMatch means the text was inspected and does not qualify.
	EmptyMatch
	// Match means the text qualifies and Result carries a reaction.
	Match
)

func (k Kind) String() string {
	switch k {
	case NoOpinion:
		return "no_opinion"
	case EmptyMatch:
		return "empty"
	case Match:
		return "match"
	default:
		return "unknown"
	}
}

// Result is the transient classification of one message.
type Result struct {
	Kind     Kind
	Reaction string // set only when Kind == Match
}

// Reactions returns the reaction set to attach. It is empty for anything but
// a match, which lets callers clear a previous reaction by attaching it.
func (r Result) Reactions() []string {
	if r.Kind != Match {
		return []string{}
	}
	return []string{r.Reaction}
}

// IsMatch reports whether the result is a match.
func (r Result) IsMatch() bool { return r.Kind == Match }

// Classify inspects the first two characters of the normalized text.
// hasText is false for messages without text (stickers, photos, ...).
func Classify(text string, hasText bool) Result {
	if !hasText {
		return Result{Kind: NoOpinion}
	}

	norm := Normalize(text)

	fst, size := utf8.DecodeRuneInString(norm)
	if size == 0 {
		return Result{Kind: EmptyMatch}
	}
	snd, size2 := utf8.DecodeRuneInString(norm[size:])
	if size2 == 0 {
		return Result{Kind: EmptyMatch}
	}

	// Normalize drops invalid bytes, so size 1 means an ASCII rune.
	if size <= 1 || fst != snd {
		return Result{Kind: EmptyMatch}
	}

	reaction := ReactionThinking
	if fst == Canonical {
		reaction = ReactionFire
	}
	return Result{Kind: Match, Reaction: reaction}
}
