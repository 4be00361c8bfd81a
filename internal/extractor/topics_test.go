package extractor

import (
	"reflect"
	"testing"
)

func TestDetectTopics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Topic
	}{
		{"otp and verification", "Send OTP to verify your account, URGENT", []Topic{TopicOTP, TopicVerification}},
		{"payment via upi", "Pay the fine of Rs 500 via UPI", []Topic{TopicUPI, TopicPayment}},
		{"threat", "Your account will be frozen and police will arrest you", []Topic{TopicThreat}},
		{"link", "Open the link www.sbi-help.in now", []Topic{TopicLink}},
		{"nothing", "hello there", []Topic{TopicUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTopics(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectTopics(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTactics(t *testing.T) {
	got := Tactics("URGENT: your account will be blocked, share OTP")
	want := []string{"urgency", "fear", "payment_request"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tactics() = %v, want %v", got, want)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("Your KYC expired, click here to verify now")
	want := []string{"verify now", "verify", "kyc", "click here", "expire"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestCollect(t *testing.T) {
	intel := Collect([]string{
		"Pay to fraud@ybl",
		"email support@fraud-help.com or visit http://bad.xyz",
		"Pay to fraud@ybl again",
	})

	if !reflect.DeepEqual(intel.UPIIDs, []string{"fraud@ybl"}) {
		t.Errorf("unexpected upi ids: %v", intel.UPIIDs)
	}
	wantLinks := []string{"http://bad.xyz", "support@fraud-help.com"}
	if !reflect.DeepEqual(intel.PhishingLinks, wantLinks) {
		t.Errorf("PhishingLinks = %v, want %v", intel.PhishingLinks, wantLinks)
	}
	if intel.Complete() {
		t.Error("report without accounts or phones should not be complete")
	}
}

func TestMerge(t *testing.T) {
	a := Intelligence{UPIIDs: []string{"x@ybl"}, BankAccounts: []string{"123456789012"}}
	b := Intelligence{UPIIDs: []string{"x@ybl", "y@paytm"}, PhoneNumbers: []string{"+919876543210"}, PhishingLinks: []string{"http://bad.xyz"}}

	merged := Merge(a, b)
	if !reflect.DeepEqual(merged.UPIIDs, []string{"x@ybl", "y@paytm"}) {
		t.Errorf("unexpected merged upi ids: %v", merged.UPIIDs)
	}
	if !merged.Complete() {
		t.Error("expected merged report to be complete")
	}

	empty := Intelligence{}.Normalized()
	if empty.BankAccounts == nil || empty.SuspiciousKeywords == nil {
		t.Error("Normalized should replace nil slices")
	}
}
