package corpus

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleEmails() []CleanedEmail {
	return []CleanedEmail{
		{ID: 1, Subject: "Pricing for March", Body: "Hi [Customer],\n\nHere is the quote you asked for. Let me know if you have questions.\n\nThanks,\nJoe", WordCount: 18},
		{ID: 2, Subject: "Delivery window", Body: "Hi [Customer],\n\nWe can schedule the delivery for Tuesday. Let me know if you have questions.\n\nThanks,\nJoe", WordCount: 19},
		{ID: 3, Subject: "Checking in", Body: "Hello [Customer],\n\nJust following up on our call. Let me know if you have questions!\n\nBest regards,\nJoe Newman", WordCount: 18},
		{ID: 4, Subject: "Re: lunch", Body: "Sounds great, see you then.\n\nJoe", WordCount: 6},
	}
}

func TestAnalyzeRequiresEmails(t *testing.T) {
	if _, err := NewAnalyzer("").Analyze(nil, time.Now()); !errors.Is(err, ErrNoEmails) {
		t.Fatalf("expected ErrNoEmails, got %v", err)
	}
}

func TestAnalyzeProfile(t *testing.T) {
	profile, err := NewAnalyzer("Joe Newman").Analyze(sampleEmails(), time.Now())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if profile.TotalEmailsAnalyzed != 4 {
		t.Fatalf("total = %d", profile.TotalEmailsAnalyzed)
	}

	g := profile.GreetingPatterns
	if g.MostCommon != "Hi [Name]," || g.UsagePercentages["Hi [Name],"] != 66.67 || g.UsagePercentages["Hello [Name],"] != 33.33 {
		t.Fatalf("greetings = %+v", g)
	}

	s := profile.SignOffs
	if s.MostCommon != "Thanks,\nJoe" || len(s.Variations) != 3 {
		t.Fatalf("sign-offs = %+v", s)
	}
	if s.Variations[1] != "Best regards,\nJoe" || s.Variations[2] != "Joe" {
		t.Fatalf("sign-off order = %q", s.Variations)
	}

	if len(profile.CommonPhrases) == 0 || profile.CommonPhrases[0] != "let me know" {
		t.Fatalf("phrases = %q", profile.CommonPhrases)
	}
	for _, p := range profile.CommonPhrases {
		if strings.Contains(p, "customer") {
			t.Fatalf("phrase spans placeholder: %q", p)
		}
	}

	rp := profile.ResponsePatterns
	if rp["quote_requests"].Count != 1 || rp["delivery_scheduling"].Count != 1 || rp["questions"].Count != 1 || rp["general"].Count != 1 {
		t.Fatalf("response patterns = %+v", rp)
	}
	if !strings.HasSuffix(rp["general"].Sample, "...") {
		t.Fatalf("sample = %q", rp["general"].Sample)
	}
}

func TestAnalyzeEmptyGreetingFallback(t *testing.T) {
	profile, err := NewAnalyzer("Sam Ortiz").Analyze([]CleanedEmail{{Body: "No greeting here at all."}}, time.Now())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if profile.GreetingPatterns.MostCommon != "Hi [Name]," || len(profile.GreetingPatterns.Variations) != 0 {
		t.Fatalf("greetings = %+v", profile.GreetingPatterns)
	}
	if profile.SignOffs.MostCommon != "Thanks,\nSam" {
		t.Fatalf("sign-offs = %+v", profile.SignOffs)
	}
}

func TestAnalyzeTone(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"formal", "Dear sir, please find attached. I am writing to confirm. Hereby, pursuant to, kindly, furthermore. Sincerely, regards.", "Formal"},
		{"friendly", "Hey! Thanks, great, awesome, love it, excited and looking forward. Happy to help, glad to.", "Friendly"},
		{"casual", "ok", "Casual-Professional"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnalyzeTone([]CleanedEmail{{Body: tt.body}}); got.OverallTone != tt.want {
				t.Fatalf("tone = %+v", got)
			}
		})
	}
}

func TestCharacteristics(t *testing.T) {
	wc := Characteristics([]CleanedEmail{
		{Body: "One two three. Four five.\n\nSix seven eight nine."},
		{Body: "Ten eleven."},
	})
	if wc.AvgEmailLength != 6 || wc.AvgSentenceLength != 3 || wc.AvgParagraphCount != 1.5 {
		t.Fatalf("characteristics = %+v", wc)
	}
}

func TestWriteTrainingSamples(t *testing.T) {
	a := NewAnalyzer("Joe Newman")
	var buf bytes.Buffer
	if err := a.WriteTrainingSamples(&buf, Categorize(sampleEmails()), time.Now()); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Joe Newman Writing Style - Training Samples", "CATEGORY: QUOTE REQUESTS", "CATEGORY: GENERAL", "--- Sample 1 ---", "Length: 18 words"} {
		if !strings.Contains(out, want) {
			t.Fatalf("training data missing %q", want)
		}
	}
}
