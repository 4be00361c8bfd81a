package extractor

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Facts
	}{
		{"upi with custom handle", "Send money to scammer.fraud@fakebank via UPI", Facts{UPIs: []string{"scammer.fraud@fakebank"}}},
		{"upi after label", "UPI: badguy@custompay", Facts{UPIs: []string{"badguy@custompay"}}},
		{"known handle trailing period", "pay to refund@ybl.", Facts{UPIs: []string{"refund@ybl"}}},
		{"prefixed phone", "Transfer to +91-9876543210 now", Facts{Phones: []string{"+919876543210"}}},
		{"two mobiles", "call 9876543210 or 9123456780", Facts{Phones: []string{"+919876543210", "+919123456780"}}},
		{"account number", "Account number 1234567890123456", Facts{BankAccounts: []string{"1234567890123456"}}},
		{"card format", "card 4111 2222 3333 4444", Facts{BankAccounts: []string{"4111222233334444"}}},
		{"employee id is not an account", "My employee id 123456789012 is verified", Facts{}},
		{"link", "Visit https://fake-bank.xyz/verify.", Facts{Links: []string{"https://fake-bank.xyz/verify"}}},
		{"email is not upi", "Mail me at officer@gmail.com", Facts{Emails: []string{"officer@gmail.com"}}},
		{"case number", "Your case number is CYB-2024-0091, note it", Facts{CaseNumbers: []string{"CYB-2024-0091"}}},
		{"case word without code", "the case will close soon", Facts{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtract_PhoneNotCountedAsAccount(t *testing.T) {
	got := Extract("send OTP to +919876543210 right now")
	if len(got.BankAccounts) != 0 {
		t.Errorf("expected no bank accounts, got %v", got.BankAccounts)
	}
	if len(got.Phones) != 1 || got.Phones[0] != "+919876543210" {
		t.Errorf("expected normalized phone, got %v", got.Phones)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"+91-9876543210", "+919876543210"},
		{"9876543210", "+919876543210"},
		{"919876543210", "+919876543210"},
		{" 12345 ", "12345"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.raw); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestDomain(t *testing.T) {
	if got := Domain("https://Secure-SBI.com/login"); got != "secure-sbi.com" {
		t.Errorf("expected secure-sbi.com, got %q", got)
	}
	if got := Domain("www.x.in?a=1"); got != "www.x.in" {
		t.Errorf("expected www.x.in, got %q", got)
	}
}

func TestFactsAll_Order(t *testing.T) {
	f := Facts{
		Phones:       []string{"+919876543210"},
		UPIs:         []string{"a@ybl"},
		BankAccounts: []string{"123456789012"},
	}
	got := f.All()
	want := []Fact{
		{Kind: KindUPI, Value: "a@ybl"},
		{Kind: KindBankAccount, Value: "123456789012"},
		{Kind: KindPhone, Value: "+919876543210"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %+v, want %+v", got, want)
	}
	if f.Empty() {
		t.Error("expected non-empty facts")
	}
	if !(Facts{Emails: []string{"x@y.com"}}).Empty() {
		t.Error("emails alone should not count as facts")
	}
}

func TestMentionsPayment(t *testing.T) {
	if !MentionsPayment("Pay a small fee of ₹10") {
		t.Error("expected payment vocabulary")
	}
	if MentionsPayment("Share the OTP to unblock your account") {
		t.Error("did not expect payment vocabulary")
	}
}
