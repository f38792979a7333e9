package rules

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The token DSL is a line-oriented alternative to YAML:
//
//	# comment
//	set mode = anchored;
//	set look_ahead = 4096;
//	token NUM /\d+/ -> "<N>";
//	token WORD /[a-z]+/i;
//
// A "/" inside a regex is written "\/". Letters after the closing slash are
// regex flags.

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Regex", Pattern: `/(\\.|[^/\\\n])*/[a-zA-Z]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `->|[;=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type dslFile struct {
	Entries []*dslEntry `parser:"@@*"`
}

type dslEntry struct {
	Set   *dslSet   `parser:"  @@"`
	Token *dslToken `parser:"| @@"`
}

type dslSet struct {
	Pos   lexer.Position
	Key   string `parser:"'set' @Ident '='"`
	Value string `parser:"@(Ident | Number | String) ';'"`
}

type dslToken struct {
	Name        string  `parser:"'token' @Ident"`
	Regex       string  `parser:"@Regex"`
	Replacement *string `parser:"('->' @String)? ';'"`
}

var dslParser = participle.MustBuild[dslFile](
	participle.Lexer(dslLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)

// ParseDSL parses rules written in the token DSL.
func ParseDSL(filename string, data []byte) (*RulesFile, error) {
	file, err := dslParser.ParseBytes(filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file '%s': %w", filename, err)
	}

	rules := &RulesFile{}
	for _, entry := range file.Entries {
		switch {
		case entry.Set != nil:
			if err := applySetting(rules, entry.Set); err != nil {
				return nil, fmt.Errorf("failed to parse rules file '%s': %w", filename, err)
			}
		case entry.Token != nil:
			regex, flags := splitRegexLiteral(entry.Token.Regex)
			rules.Tokens = append(rules.Tokens, TokenRule{
				Name:        entry.Token.Name,
				Regex:       regex,
				Flags:       flags,
				Replacement: entry.Token.Replacement,
			})
		}
	}
	return rules, nil
}

func applySetting(rules *RulesFile, set *dslSet) error {
	switch set.Key {
	case "mode":
		rules.Mode = set.Value
	case "tie_break":
		rules.TieBreak = set.Value
	case "on_no_match":
		rules.OnNoMatch = set.Value
	case "look_ahead":
		n, err := strconv.Atoi(set.Value)
		if err != nil {
			return fmt.Errorf("%s: look_ahead: %w", set.Pos, err)
		}
		rules.LookAhead = n
	default:
		return fmt.Errorf("%s: unknown setting '%s'", set.Pos, set.Key)
	}
	return nil
}

// splitRegexLiteral splits /regex/flags into its parts.
func splitRegexLiteral(lit string) (regex, flags string) {
	end := strings.LastIndexByte(lit, '/')
	return strings.ReplaceAll(lit[1:end], `\/`, `/`), lit[end+1:]
}

// WriteDSL writes rules in the token DSL.
func WriteDSL(w io.Writer, rules *RulesFile) error {
	var sb strings.Builder
	settings := []struct{ key, value string }{
		{"mode", rules.Mode},
		{"tie_break", rules.TieBreak},
		{"on_no_match", rules.OnNoMatch},
	}
	for _, s := range settings {
		if s.value != "" {
			fmt.Fprintf(&sb, "set %s = %s;\n", s.key, s.value)
		}
	}
	if rules.LookAhead != 0 {
		fmt.Fprintf(&sb, "set look_ahead = %d;\n", rules.LookAhead)
	}
	for _, tok := range rules.Tokens {
		fmt.Fprintf(&sb, "token %s /%s/%s", tok.Name, escapeSlashes(tok.Regex), tok.Flags)
		if tok.Replacement != nil {
			fmt.Fprintf(&sb, " -> %s", strconv.Quote(*tok.Replacement))
		}
		sb.WriteString(";\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// escapeSlashes escapes the slashes of regex that are not escaped already.
func escapeSlashes(regex string) string {
	var sb strings.Builder
	for i := 0; i < len(regex); i++ {
		switch regex[i] {
		case '\\':
			sb.WriteByte('\\')
			if i+1 < len(regex) {
				i++
				sb.WriteByte(regex[i])
			}
		case '/':
			sb.WriteString(`\/`)
		default:
			sb.WriteByte(regex[i])
		}
	}
	return sb.String()
}
