package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// bracketPlaceholder matches "[Name]" or "[Name:Arg]", case-insensitive on
// Name, with Arg preserving its original case.
var bracketPlaceholder = regexp.MustCompile(`\[([A-Za-z]+)(?::([^\]]*))?\]`)

// legacyPlaceholder matches the "{name}" legacy flow-variable syntax.
var legacyPlaceholder = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

// substitutionContext carries the extra scoped variables available during
// one substitution call: challenge outcomes, the chosen choice label.
type substitutionContext struct {
	Segment  string
	Segments string
	Roll     string
	Slots    string
	Choice   string
	Choices  string // numbered list for player_choice intro messages
}

// Substitute rewrites text, replacing every recognized placeholder with its
// current value. Missing variables leave the placeholder intact, and
// placeholder matching is case-insensitive per spec §6.
func Substitute(text string, session *SessionState, extra substitutionContext) string {
	text = bracketPlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		groups := bracketPlaceholder.FindStringSubmatch(match)
		name := strings.ToLower(groups[1])
		arg := groups[2]

		switch name {
		case "player":
			return orPlaceholder(session.PlayerName, match)
		case "char":
			return orPlaceholder(session.CharacterName, match)
		case "capacity":
			return strconv.Itoa(session.Capacity)
		case "pain", "feeling":
			return PainLabel(session.Pain)
		case "emotion":
			return orPlaceholder(session.Emotion, match)
		case "segment":
			return orPlaceholder(extra.Segment, match)
		case "segments":
			return orPlaceholder(extra.Segments, match)
		case "roll":
			return orPlaceholder(extra.Roll, match)
		case "slots":
			return orPlaceholder(extra.Slots, match)
		case "choice":
			return orPlaceholder(extra.Choice, match)
		case "choices":
			return orPlaceholder(extra.Choices, match)
		case "flow":
			if v, ok := session.FlowVariables[arg]; ok {
				return v
			}
			return match
		default:
			return match
		}
	})

	text = legacyPlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		groups := legacyPlaceholder.FindStringSubmatch(match)
		name := groups[1]
		if v, ok := session.FlowVariables[name]; ok {
			return v
		}
		return match
	})

	return text
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}

// NumberedChoiceList renders choices as a numbered list for a player_choice
// intro message's [Choices] placeholder.
func NumberedChoiceList(choices []ChoiceOption) string {
	var b strings.Builder
	for i, c := range choices {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c.Label)
	}
	return b.String()
}

// ResolveFlowVarNumeric resolves a numeric config field that may be either a
// literal numeric string or a "[Flow:name]" reference, per spec §6 and the
// delay/pulse_pump/start_cycle node configs. Returns def if unresolved or
// unparsable.
func ResolveFlowVarNumeric(raw string, session *SessionState, def float64) float64 {
	if raw == "" {
		return def
	}
	if strings.HasPrefix(raw, "[Flow:") && strings.HasSuffix(raw, "]") {
		name := raw[len("[Flow:") : len(raw)-1]
		if v, ok := session.FlowVariables[name]; ok {
			raw = v
		} else {
			return def
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}
