package merge

import (
	"testing"

	"github.com/ignite/campaign-reporter/internal/domain"
)

func TestCorrelate(t *testing.T) {
	tenants := []domain.Tenant{
		{ID: 1, Name: "Acme"},
		{ID: 2, Name: "Acme Corp"},
		{ID: 3, Name: "Globex"},
	}

	tests := []struct {
		name     string
		campaign string
		wantID   int64
		wantOK   bool
	}{
		{"exact prefix", "Globex - March Newsletter", 3, true},
		{"underscore delimiter", "Globex_retention_wave2", 3, true},
		{"colon delimiter", "Globex: winback", 3, true},
		{"case insensitive", "GLOBEX - caps", 3, true},
		{"substring match", "Team Globex Q1 - promo", 3, true},
		{"longest tenant wins", "Acme Corp - Spring", 2, true},
		{"shorter tenant when only it matches", "Acme - Spring", 1, true},
		{"no match", "Initech - onboarding", 0, false},
		{"delimiter cuts off the tenant", "Spring - Globex", 0, false},
		{"empty name", "", 0, false},
		{"whitespace only", "   ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := Correlate(tt.campaign, tenants)
			if ok != tt.wantOK || id != tt.wantID {
				t.Errorf("Correlate(%q) = (%d, %v), want (%d, %v)",
					tt.campaign, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestCorrelateNoTenants(t *testing.T) {
	if id, ok := Correlate("Acme - Spring", nil); ok || id != 0 {
		t.Errorf("Correlate with no tenants = (%d, %v), want no match", id, ok)
	}
}

func TestCampaignPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme - Spring", "Acme "},
		{"Acme_Spring", "Acme"},
		{"Acme:Spring", "Acme"},
		{"no delimiter at all", "no delimiter at all"},
		{"a-b_c:d", "a"},
	}
	for _, tt := range tests {
		if got := campaignPrefix(tt.in); got != tt.want {
			t.Errorf("campaignPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
