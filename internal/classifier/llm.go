package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/honeypot/internal/anthropic"
	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

// ErrUnparseable is returned when the model's answer holds no JSON object.
var ErrUnparseable = errors.New("classifier: unparseable model output")

// Completer is the model call the LLM classifier needs.
type Completer interface {
	Complete(ctx context.Context, req anthropic.Request) (anthropic.Completion, error)
}

const (
	llmMaxTokens   = 550
	llmHistory     = 10
	llmIndicators  = 8
	benignCeiling  = 0.39
	llmSystemBrief = "You are a fraud detection analyst for Indian scam messages. Be strict with JSON and do not include markdown."
)

// LLM classifies with a language model.
type LLM struct {
	client Completer
}

// NewLLM creates a model-backed classifier.
func NewLLM(client Completer) *LLM {
	return &LLM{client: client}
}

// Classify asks the model for a verdict on text.
func (l *LLM) Classify(ctx context.Context, text string, history []state.Message) (Result, error) {
	prompt, err := classificationPrompt(text, history)
	if err != nil {
		return Result{}, err
	}
	out, err := l.client.Complete(ctx, anthropic.Request{
		System:        llmSystemBrief,
		Messages:      []anthropic.Message{{Role: anthropic.RoleUser, Content: prompt}},
		MaxTokens:     llmMaxTokens,
		Deterministic: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	return Parse(out.Text)
}

func classificationPrompt(text string, history []state.Message) (string, error) {
	if len(history) > llmHistory {
		history = history[len(history)-llmHistory:]
	}
	type line struct {
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}
	lines := make([]line, 0, len(history))
	for _, m := range history {
		lines = append(lines, line{Sender: m.Sender.String(), Text: m.Text})
	}
	hist, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}

	var b strings.Builder
	b.WriteString("Classify whether the latest incoming message is likely a scam.\n")
	b.WriteString("Return only valid JSON with this schema:\n")
	b.WriteString(`{"is_scam": boolean, "confidence": number_between_0_and_1, `)
	b.WriteString(`"scam_type": "phishing|impersonation_threat|lottery_scam|job_scam|phishing_link|kyc_fraud|generic_scam|benign", `)
	b.WriteString(`"risk_level": "low|medium|high|critical", `)
	b.WriteString(`"indicators": [{"indicator_type": string, "value": string, "confidence": number_between_0_and_1, "context": string}]}`)
	b.WriteString("\n\nLatest message:\n")
	b.WriteString(text)
	b.WriteString("\n\nConversation history:\n")
	b.Write(hist)
	return b.String(), nil
}

var knownTypes = map[string]bool{
	TypePhishing: true, TypeImpersonationThreat: true, TypeLottery: true, TypeJob: true,
	TypePhishingLink: true, TypeKYCFraud: true, TypeGeneric: true, TypeBenign: true,
}

var knownRisks = map[string]bool{RiskLow: true, RiskMedium: true, RiskHigh: true, RiskCritical: true}

// Parse reads a model verdict. It tolerates prose around the JSON object,
// unknown scam types, string-typed numbers and out-of-range confidences.
func Parse(content string) (Result, error) {
	raw, err := decodeObject(content)
	if err != nil {
		return Result{}, err
	}

	isScam := truthy(raw["is_scam"])
	confidence := clamp(number(raw["confidence"]))
	scamType := strings.ToLower(strings.TrimSpace(str(raw["scam_type"])))
	risk := strings.ToLower(strings.TrimSpace(str(raw["risk_level"])))

	if !knownTypes[scamType] {
		scamType = TypeBenign
		if isScam {
			scamType = TypeGeneric
		}
	}
	if scamType == TypeBenign {
		isScam = false
		scamType = ""
		confidence = min(confidence, benignCeiling)
	} else if isScam && confidence < DefaultThreshold {
		confidence = DefaultThreshold
	}
	if !knownRisks[risk] {
		risk = RiskLow
		if isScam {
			risk = RiskLevel(confidence)
		}
	}

	inds := []Indicator{}
	if list, ok := raw["indicators"].([]any); ok {
		for _, item := range list {
			if len(inds) == llmIndicators {
				break
			}
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			ind := Indicator{
				Type:       orDefault(str(m["indicator_type"]), "llm_signal"),
				Value:      orDefault(str(m["value"]), "signal"),
				Confidence: confidence,
				Context:    strings.TrimSpace(str(m["context"])),
			}
			if _, ok := m["confidence"]; ok {
				ind.Confidence = clamp(number(m["confidence"]))
			}
			inds = append(inds, ind)
		}
	}
	if isScam && len(inds) == 0 {
		inds = append(inds, Indicator{
			Type:       "llm_signal",
			Value:      "scam_pattern_detected",
			Confidence: confidence,
			Context:    "model classified this as likely scam content",
		})
	}

	return Result{
		IsScam:     isScam,
		Confidence: round2(confidence),
		ScamType:   scamType,
		RiskLevel:  risk,
		Indicators: inds,
		Source:     "llm",
	}, nil
}

func decodeObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrUnparseable
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err == nil {
		return raw, nil
	}
	start, end := strings.Index(content, "{"), strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, ErrUnparseable
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return raw, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	}
	return false
}

func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
