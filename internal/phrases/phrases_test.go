package phrases

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/honeypot/internal/similarity"
)

func TestDefault(t *testing.T) {
	b := Default()
	if b.SafeLine == "" || b.CaseAsk == "" {
		t.Fatal("expected fixed lines to be populated")
	}
	if len(b.Ack["bank_account"]) == 0 || len(b.Mirror["upi"]) == 0 || len(b.Bait["case_number"]) == 0 {
		t.Error("expected per-kind pools")
	}
	for _, state := range []string{"high_anxiety", "technical_confusion", "frustration", "suspicion"} {
		if b.Directives[state] == "" {
			t.Errorf("missing directive for %s", state)
		}
	}
}

func TestDefault_DiversityLinesCarryTheirFeature(t *testing.T) {
	b := Default()
	for _, f := range similarity.Features {
		lines := b.Diversity[string(f)]
		if len(lines) == 0 {
			t.Errorf("no diversity lines for %s", f)
			continue
		}
		for _, line := range lines {
			if !similarity.ExtractSkeleton(line).Has(f) {
				t.Errorf("diversity line %q does not carry %s", line, f)
			}
		}
	}
}

func TestDefault_TacticPoolsLongEnough(t *testing.T) {
	b := Default()
	for c, pool := range b.Tactics {
		if len(pool) < 5 {
			t.Errorf("tactic pool %s has %d lines, want at least 5", c, len(pool))
		}
	}
}

func TestDefault_FallbacksAreClean(t *testing.T) {
	b := Default()
	var all []string
	all = append(all, b.OTPStall...)
	all = append(all, b.Generic...)
	all = append(all, b.ProcessConfusion...)
	for _, pool := range b.Diversity {
		all = append(all, pool...)
	}
	for _, line := range all {
		lower := strings.ToLower(line)
		for _, f := range b.Forbidden {
			if strings.Contains(lower, f) {
				t.Errorf("fallback %q contains forbidden phrase %q", line, f)
			}
		}
		if strings.Contains(line, "!") {
			t.Errorf("fallback %q contains an exclamation mark", line)
		}
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.yaml")
	if err := os.WriteFile(path, defaultBook, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.SafeLine != Default().SafeLine {
		t.Error("file book differs from embedded book")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("safe_line: \"\"\n")); err == nil {
		t.Error("expected validation error for empty book")
	}
	if _, err := Parse([]byte("otp_stall: [unterminated")); err == nil {
		t.Error("expected decode error")
	}
}

func TestFill(t *testing.T) {
	tests := []struct {
		template string
		value    string
		want     string
	}{
		{"About account ending {tail},", "1234567890123456", "About account ending 3456,"},
		{"I tried opening {domain}, but", "https://Fake-Bank.xyz/login", "I tried opening fake-bank.xyz, but"},
		{"About that UPI {value},", "fraud@ybl", "About that UPI fraud@ybl,"},
		{"So the number ending {tail},", "+919876543210", "So the number ending 3210,"},
	}
	for _, tt := range tests {
		if got := Fill(tt.template, tt.value); got != tt.want {
			t.Errorf("Fill(%q, %q) = %q, want %q", tt.template, tt.value, got, tt.want)
		}
	}
}
