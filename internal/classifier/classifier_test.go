package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRules_Classify(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantScam   bool
		wantType   string
		wantRisk   string
		wantConfAt float64
	}{
		{"otp phishing", "URGENT: Your SBI account will be blocked. Share OTP immediately to verify now.", true, TypePhishing, RiskCritical, 1.0},
		{"police threat", "This is CBI. You will be arrested, legal action will be taken.", true, TypeImpersonationThreat, RiskCritical, 1.0},
		{"lottery with link", "Congratulations! You are the lottery winner. Claim your prize at www.lucky-win.xyz", true, TypeLottery, RiskCritical, 0.9},
		{"benign", "Hello, are we still meeting for lunch tomorrow?", false, "", RiskLow, 0},
	}

	r := NewRules(DefaultThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Classify(tt.text, nil)
			if got.IsScam != tt.wantScam {
				t.Errorf("IsScam = %v, want %v", got.IsScam, tt.wantScam)
			}
			if got.ScamType != tt.wantType {
				t.Errorf("ScamType = %q, want %q", got.ScamType, tt.wantType)
			}
			if got.RiskLevel != tt.wantRisk {
				t.Errorf("RiskLevel = %q, want %q", got.RiskLevel, tt.wantRisk)
			}
			if got.Confidence != tt.wantConfAt {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConfAt)
			}
			if got.Source != "rules" {
				t.Errorf("Source = %q", got.Source)
			}
		})
	}
}

func TestRules_EscalatingRequests(t *testing.T) {
	history := []state.Message{
		{Sender: state.Counterpart, Text: "Send me the code"},
		{Sender: state.Agent, Text: "Which code? Please send it again."},
		{Sender: state.Counterpart, Text: "Share your details"},
	}
	got := NewRules(DefaultThreshold).Classify("ok", history)
	if got.Confidence != 0.2 {
		t.Errorf("expected escalation bonus 0.2, got %v", got.Confidence)
	}
	if got.IsScam {
		t.Error("escalation alone should stay below the threshold")
	}
}

func TestRules_UPIRequest(t *testing.T) {
	got := NewRules(DefaultThreshold).Classify("Send 10 rs to refund@ybl via upi", nil)
	found := false
	for _, ind := range got.Indicators {
		if ind.Type == "upi_request" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected upi_request indicator, got %+v", got.Indicators)
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		conf float64
		want string
	}{
		{0.95, RiskCritical}, {0.8, RiskCritical}, {0.6, RiskHigh}, {0.45, RiskMedium}, {0.1, RiskLow},
	}
	for _, tt := range tests {
		if got := RiskLevel(tt.conf); got != tt.want {
			t.Errorf("RiskLevel(%v) = %q, want %q", tt.conf, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantScam bool
		wantType string
		wantConf float64
		wantRisk string
	}{
		{"clean", `{"is_scam": true, "confidence": 0.92, "scam_type": "phishing", "risk_level": "critical", "indicators": []}`, true, TypePhishing, 0.92, RiskCritical},
		{"wrapped in prose", "Here you go:\n```json\n{\"is_scam\": true, \"confidence\": \"0.3\", \"scam_type\": \"weird\"}\n```", true, TypeGeneric, 0.4, RiskMedium},
		{"benign caps confidence", `{"is_scam": true, "confidence": 0.8, "scam_type": "benign"}`, false, "", 0.39, RiskLow},
		{"confidence clamped", `{"is_scam": "true", "confidence": 7, "scam_type": "kyc_fraud", "risk_level": "HIGH"}`, true, TypeKYCFraud, 1.0, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.IsScam != tt.wantScam || got.ScamType != tt.wantType || got.Confidence != tt.wantConf || got.RiskLevel != tt.wantRisk {
				t.Errorf("Parse() = %+v, want scam=%v type=%q conf=%v risk=%q", got, tt.wantScam, tt.wantType, tt.wantConf, tt.wantRisk)
			}
		})
	}
}

func TestParse_Indicators(t *testing.T) {
	got, err := Parse(`{"is_scam": true, "confidence": 0.7, "scam_type": "phishing", "indicators": [{"indicator_type": "otp", "value": "asks for OTP"}, "junk", {"confidence": 0.2}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %+v", got.Indicators)
	}
	if got.Indicators[0].Confidence != 0.7 {
		t.Errorf("missing confidence should inherit the verdict, got %v", got.Indicators[0].Confidence)
	}
	if got.Indicators[1].Type != "llm_signal" || got.Indicators[1].Value != "signal" {
		t.Errorf("expected defaults, got %+v", got.Indicators[1])
	}
}

func TestParse_Unparseable(t *testing.T) {
	for _, content := range []string{"", "no json here", "{not json}"} {
		if _, err := Parse(content); !errors.Is(err, ErrUnparseable) {
			t.Errorf("Parse(%q) error = %v, want ErrUnparseable", content, err)
		}
	}
}

type fakeCompleter struct {
	out    string
	err    error
	prompt string
	req    anthropic.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req anthropic.Request) (anthropic.Completion, error) {
	f.req, f.prompt = req, req.Messages[0].Content
	return anthropic.Completion{Text: f.out}, f.err
}

func TestLLM_Classify(t *testing.T) {
	fc := &fakeCompleter{out: `{"is_scam": true, "confidence": 0.9, "scam_type": "phishing"}`}
	history := []state.Message{{Sender: state.Counterpart, Text: "your account is blocked"}}

	got, err := NewLLM(fc).Classify(context.Background(), "share otp", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != "llm" || !got.IsScam {
		t.Errorf("unexpected result %+v", got)
	}
	if !strings.Contains(fc.prompt, "share otp") || !strings.Contains(fc.prompt, `"sender":"scammer"`) {
		t.Errorf("prompt missing message or history: %s", fc.prompt)
	}
	if !fc.req.Deterministic || fc.req.System == "" {
		t.Errorf("classification should be deterministic with a system brief, got %+v", fc.req)
	}
}

func TestHybrid_FallsBackToRules(t *testing.T) {
	text := "URGENT: Share OTP immediately"

	failing := NewHybrid(NewLLM(&fakeCompleter{err: errors.New("timeout")}), NewRules(DefaultThreshold), discardLogger())
	if got := failing.Classify(context.Background(), text, nil); got.Source != "rules" {
		t.Errorf("expected rules fallback on error, got %q", got.Source)
	}

	garbled := NewHybrid(NewLLM(&fakeCompleter{out: "I think so"}), NewRules(DefaultThreshold), discardLogger())
	if got := garbled.Classify(context.Background(), text, nil); got.Source != "rules" {
		t.Errorf("expected rules fallback on bad output, got %q", got.Source)
	}

	rulesOnly := NewHybrid(nil, NewRules(DefaultThreshold), discardLogger())
	if got := rulesOnly.Classify(context.Background(), text, nil); !got.IsScam {
		t.Error("expected rules to flag the message")
	}

	ok := NewHybrid(NewLLM(&fakeCompleter{out: `{"is_scam": false, "confidence": 0.1, "scam_type": "benign"}`}), NewRules(DefaultThreshold), discardLogger())
	if got := ok.Classify(context.Background(), text, nil); got.Source != "llm" || got.IsScam {
		t.Errorf("expected model verdict, got %+v", got)
	}
}
