// Package phrases holds every line the persona can fall back on. The
// default book is embedded; an operator can replace it with a YAML file.
package phrases

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/honeypot/internal/extractor"
	"github.com/MikeSquared-Agency/honeypot/internal/tactics"
)

//go:embed phrases.yaml
var defaultBook []byte

// Book is the full set of phrase pools.
type Book struct {
	SafeLine  string `yaml:"safe_line"`
	ErrorLine string `yaml:"error_line"`
	EmptyLine string `yaml:"empty_line"`
	CaseAsk   string `yaml:"case_ask"`

	OTPStall       []string `yaml:"otp_stall"`
	LinkLoading    []string `yaml:"link_loading"`
	LinkError      []string `yaml:"link_error"`
	LinkNeutral    []string `yaml:"link_neutral"`
	LinkLoadingFix string   `yaml:"link_loading_fix"`
	LinkErrorFix   string   `yaml:"link_error_fix"`
	Phone          []string `yaml:"phone"`
	Account        []string `yaml:"account"`
	UPI            []string `yaml:"upi"`
	Generic        []string `yaml:"generic"`

	Ack    map[string][]string `yaml:"ack"`
	Mirror map[string][]string `yaml:"mirror"`
	Bait   map[string][]string `yaml:"bait"`

	ProcessConfusion []string            `yaml:"process_confusion"`
	Tactics          map[string][]string `yaml:"tactics"`
	Diversity        map[string][]string `yaml:"diversity"`

	Annoyances     []string          `yaml:"annoyances"`
	Directives     map[string]string `yaml:"directives"`
	SentimentShift string            `yaml:"sentiment_shift"`
	Contradictions map[string]string `yaml:"contradictions"`
	Personas       map[string]string `yaml:"personas"`

	Forbidden     []string `yaml:"forbidden"`
	BannedOpeners []string `yaml:"banned_openers"`
}

// Default returns the embedded phrase book.
func Default() *Book {
	b, err := Parse(defaultBook)
	if err != nil {
		panic(fmt.Sprintf("embedded phrase book: %v", err))
	}
	return b
}

// Load reads a phrase book from path, or returns the embedded book when path
// is empty.
func Load(path string) (*Book, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrase book: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML phrase book.
func Parse(data []byte) (*Book, error) {
	var b Book
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode phrase book: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks that every pool the pipeline draws from is populated.
func (b *Book) Validate() error {
	lines := map[string]string{
		"safe_line":  b.SafeLine,
		"error_line": b.ErrorLine,
		"empty_line": b.EmptyLine,
		"case_ask":   b.CaseAsk,
	}
	for name, line := range lines {
		if strings.TrimSpace(line) == "" {
			return fmt.Errorf("phrase book: %s is empty", name)
		}
	}

	pools := map[string][]string{
		"otp_stall":         b.OTPStall,
		"link_neutral":      b.LinkNeutral,
		"generic":           b.Generic,
		"process_confusion": b.ProcessConfusion,
	}
	for name, pool := range pools {
		if len(pool) == 0 {
			return fmt.Errorf("phrase book: %s has no lines", name)
		}
	}

	for _, c := range tactics.Categories {
		if len(b.Tactics[string(c)]) == 0 {
			return fmt.Errorf("phrase book: tactics.%s has no lines", c)
		}
	}
	if len(b.Diversity) == 0 {
		return fmt.Errorf("phrase book: diversity has no pools")
	}
	return nil
}

// TacticPools returns the tactic instructions keyed by category.
func (b *Book) TacticPools() map[tactics.Category][]string {
	pools := make(map[tactics.Category][]string, len(tactics.Categories))
	for _, c := range tactics.Categories {
		pools[c] = b.Tactics[string(c)]
	}
	return pools
}

// Fill substitutes the value placeholders in a template.
func Fill(template, value string) string {
	r := strings.NewReplacer(
		"{value}", value,
		"{tail}", Tail(value),
		"{domain}", extractor.Domain(value),
	)
	return r.Replace(template)
}

// Tail returns the last four digits of value, or its last four characters
// when it has fewer than four digits.
func Tail(value string) string {
	var digits []rune
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) >= 4 {
		return string(digits[len(digits)-4:])
	}
	rs := []rune(value)
	if len(rs) > 4 {
		return string(rs[len(rs)-4:])
	}
	return value
}
