package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Web3 Jobs</title>
  <link>https://jobs.example</link>
  <description>Latest postings</description>
  <item>
    <title>Senior Solidity Engineer at ChainWorks</title>
    <link>https://jobs.example/101</link>
    <guid>101</guid>
    <pubDate>Tue, 10 Feb 2026 09:00:00 +0000</pubDate>
    <description><![CDATA[<p>Build and audit smart contracts.</p>]]></description>
    <category>solidity</category>
    <category>defi</category>
  </item>
  <item>
    <title>Protocol Researcher</title>
    <link>https://jobs.example/102</link>
    <guid>102</guid>
    <description>Research consensus protocols.</description>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSSource_Fetch(t *testing.T) {
	srv := feedServer(t, http.StatusOK, feedXML)

	src := NewRSSSource("web3career", srv.URL, "", srv.Client())
	postings, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("len = %d, want 2", len(postings))
	}

	first := postings[0]
	if first.Source != "web3career" {
		t.Errorf("Source = %q, want web3career", first.Source)
	}
	if first.Title != "Senior Solidity Engineer" || first.Company != "ChainWorks" {
		t.Errorf("Title/Company = %q/%q, want split on \" at \"", first.Title, first.Company)
	}
	if first.ExternalID != "101" {
		t.Errorf("ExternalID = %q, want guid 101", first.ExternalID)
	}
	if first.PostedAt != "Tue, 10 Feb 2026 09:00:00 +0000" {
		t.Errorf("PostedAt = %q", first.PostedAt)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "solidity" {
		t.Errorf("Tags = %v", first.Tags)
	}

	second := postings[1]
	if second.Title != "Protocol Researcher" || second.Company != "" {
		t.Errorf("Title/Company = %q/%q, want unsplit title and empty company", second.Title, second.Company)
	}
}

func TestRSSSource_CompanyOverride(t *testing.T) {
	srv := feedServer(t, http.StatusOK, feedXML)

	src := NewRSSSource("acmefeed", srv.URL, "Acme", srv.Client())
	postings, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if postings[0].Company != "Acme" {
		t.Errorf("Company = %q, want configured Acme", postings[0].Company)
	}
	if postings[0].Title != "Senior Solidity Engineer at ChainWorks" {
		t.Errorf("Title = %q, want unsplit title when company is configured", postings[0].Title)
	}
}

func TestRSSSource_HTTPError(t *testing.T) {
	srv := feedServer(t, http.StatusNotFound, "gone")

	src := NewRSSSource("web3career", srv.URL, "", srv.Client())
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch: expected error on 404")
	}
}

func TestSplitTitleCompany(t *testing.T) {
	tests := []struct {
		in          string
		wantTitle   string
		wantCompany string
	}{
		{"Senior Engineer at Acme", "Senior Engineer", "Acme"},
		{"Plain Title", "Plain Title", ""},
		{"Engineer at Acme at Scale", "Engineer at Acme", "Scale"},
		{" at Acme", " at Acme", ""},
	}
	for _, tt := range tests {
		title, company := splitTitleCompany(tt.in)
		if title != tt.wantTitle || company != tt.wantCompany {
			t.Errorf("splitTitleCompany(%q) = %q/%q, want %q/%q", tt.in, title, company, tt.wantTitle, tt.wantCompany)
		}
	}
}
