// Package rules loads token sets from rules files. A rules file is YAML, or
// the compact DSL described in dsl.go when its name ends in ".tok".
package rules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/amitshokeen/streamflyer/pkg/engine"
	"github.com/amitshokeen/streamflyer/pkg/nomatch"
	"github.com/amitshokeen/streamflyer/pkg/tokens"
)

// RulesFile represents the structure of a rules file
type RulesFile struct {
	Mode      string      `yaml:"mode,omitempty"`        // search or anchored
	TieBreak  string      `yaml:"tie_break,omitempty"`   // first or longest
	LookAhead int         `yaml:"look_ahead,omitempty"`  // bytes
	OnNoMatch string      `yaml:"on_no_match,omitempty"` // default or terminate
	Tokens    []TokenRule `yaml:"tokens,omitempty"`
}

// TokenRule represents a single token. A nil Replacement leaves matches unchanged.
type TokenRule struct {
	Name        string  `yaml:"name"`
	Regex       string  `yaml:"regex"`
	Flags       string  `yaml:"flags,omitempty"`
	Replacement *string `yaml:"replacement,omitempty"`
}

// Rules is a compiled rule set.
type Rules struct {
	Tokens         []*tokens.Token
	MatcherOptions tokens.MatcherOptions
	Handlers       []nomatch.Handler
}

// DefaultRulesFile returns the rules used when no rules file is given:
// line endings are normalised to "\n".
func DefaultRulesFile() *RulesFile {
	lf := "\n"
	return &RulesFile{
		Mode:      tokens.Search.String(),
		TieBreak:  tokens.FirstRegistered.String(),
		LookAhead: tokens.DefaultLookAhead,
		OnNoMatch: "default",
		Tokens: []TokenRule{
			{Name: "LINE_ENDING", Regex: `\r\n?`, Replacement: &lf},
		},
	}
}

// DefaultRules returns the compiled default rules.
func DefaultRules() *Rules {
	rules, err := Build(DefaultRulesFile())
	if err != nil {
		panic(fmt.Sprintf("Invalid default rules: %v", err))
	}
	return rules
}

// LoadRulesFile loads and parses a rules file
func LoadRulesFile(filename string) (*RulesFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", filename, err)
	}

	if filepath.Ext(filename) == ".tok" {
		return ParseDSL(filename, data)
	}

	var rules RulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in rules file '%s': %w", filename, err)
	}

	return &rules, nil
}

// ApplyRulesToDefaults overlays a RulesFile on the default rules and compiles
// the result. Settings given in the file replace the defaults; a non-empty
// token list replaces the default tokens.
func ApplyRulesToDefaults(rules *RulesFile) (*Rules, error) {
	merged := *DefaultRulesFile()

	if rules.Mode != "" {
		merged.Mode = rules.Mode
	}
	if rules.TieBreak != "" {
		merged.TieBreak = rules.TieBreak
	}
	if rules.LookAhead != 0 {
		merged.LookAhead = rules.LookAhead
	}
	if rules.OnNoMatch != "" {
		merged.OnNoMatch = rules.OnNoMatch
	}
	if len(rules.Tokens) > 0 {
		merged.Tokens = rules.Tokens
	}

	return Build(&merged)
}

// Build compiles a RulesFile as is, without defaults.
// Returns an error if two tokens share a name.
func Build(rf *RulesFile) (*Rules, error) {
	var rules Rules

	switch rf.Mode {
	case "", "search":
		rules.MatcherOptions.Mode = tokens.Search
	case "anchored":
		rules.MatcherOptions.Mode = tokens.Anchored
	default:
		return nil, fmt.Errorf("unknown mode '%s' (want search or anchored)", rf.Mode)
	}

	switch rf.TieBreak {
	case "", "first":
		rules.MatcherOptions.TieBreak = tokens.FirstRegistered
	case "longest":
		rules.MatcherOptions.TieBreak = tokens.Longest
	default:
		return nil, fmt.Errorf("unknown tie_break '%s' (want first or longest)", rf.TieBreak)
	}

	if rf.LookAhead < 0 {
		return nil, fmt.Errorf("look_ahead must not be negative, got %d", rf.LookAhead)
	}
	rules.MatcherOptions.LookAhead = rf.LookAhead

	switch rf.OnNoMatch {
	case "", "default":
	case "terminate":
		rules.Handlers = append(rules.Handlers, nomatch.Terminate())
	default:
		return nil, fmt.Errorf("unknown on_no_match '%s' (want default or terminate)", rf.OnNoMatch)
	}

	sources := make(map[string]int, len(rf.Tokens))
	for i, rule := range rf.Tokens {
		if first, exists := sources[rule.Name]; exists {
			return nil, fmt.Errorf("token '%s' is defined in both rule %d and rule %d", rule.Name, first+1, i+1)
		}
		sources[rule.Name] = i

		tok, err := buildToken(rule)
		if err != nil {
			return nil, err
		}
		rules.Tokens = append(rules.Tokens, tok)
	}

	return &rules, nil
}

func buildToken(rule TokenRule) (*tokens.Token, error) {
	if rule.Name == "" {
		return nil, fmt.Errorf("token with regex '%s' has no name", rule.Regex)
	}
	flags, err := tokens.ParseFlags(rule.Flags)
	if err != nil {
		return nil, fmt.Errorf("token '%s': %w", rule.Name, err)
	}
	regex := tokens.EmbedFlags(rule.Regex, flags)
	if rule.Replacement == nil {
		return tokens.New(rule.Name, regex)
	}
	return tokens.NewReplacing(rule.Name, regex, *rule.Replacement)
}

// NewMatcher compiles the rules' tokens into a matcher.
func (r *Rules) NewMatcher() (*tokens.Matcher, error) {
	return tokens.NewMatcher(r.Tokens, r.MatcherOptions)
}

// EngineOptions returns the processor options for the rules.
func (r *Rules) EngineOptions(logger *slog.Logger) engine.Options {
	return engine.Options{Handlers: r.Handlers, Logger: logger}
}
