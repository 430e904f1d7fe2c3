package yamlfile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	parser "linguaflow/internal/adapters/parser/yamlfile"
	"linguaflow/internal/domain"
)

func parse(t *testing.T, data []byte) []domain.Entry {
	t.Helper()
	res, err := parser.New().Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v\n%s", err, data)
	}
	return res.Entries
}

const doc = `# Greetings
greeting: Hi # short
count: 3
nav:
  home: Home
`

func TestExport_UpdatesKeepComments(t *testing.T) {
	out, err := New().Export("de", []domain.Entry{{Key: "greeting", Value: "Hello"}, {Key: "nav.home", Value: "true"}}, []byte(doc))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	s := string(out)
	for _, want := range []string{"# Greetings", "# short", "greeting: Hello", "count: 3"} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
	}
	got := parse(t, out)
	want := []domain.Entry{{Key: "greeting", Value: "Hello", Position: 0}, {Key: "nav.home", Value: "true", Position: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_AppendsUnderDeepestMapping(t *testing.T) {
	entries := []domain.Entry{{Key: "nav.about", Value: "About"}, {Key: "footer.copy", Value: "(c)"}}
	out, err := New().Export("de", entries, []byte(doc))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if !strings.Contains(string(out), "nav:\n  home: Home\n  about: About\n") {
		t.Fatalf("nav.about not nested:\n%s", out)
	}
	var keys []string
	for _, e := range parse(t, out) {
		keys = append(keys, e.Key)
	}
	if diff := cmp.Diff([]string{"greeting", "nav.home", "nav.about", "footer.copy"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_NoChangeKeepsBytes(t *testing.T) {
	out, err := New().Export("de", parse(t, []byte(doc)), []byte(doc))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if string(out) != doc {
		t.Fatalf("output changed:\n%s", out)
	}
}

func TestRoundTrip(t *testing.T) {
	samples := []string{
		doc,
		"greeting: Hello\nfarewell: Bye\n",
		"a:\n  b:\n    c: deep\n  'b.d': literal\nempty: ''\n",
		"text: |\n  line one\n  line two\n",
		"'': no key\nx: y\n",
	}
	for _, s := range samples {
		entries := parse(t, []byte(s))
		fresh, err := New().Export("en", entries, nil)
		if err != nil {
			t.Fatalf("Export fresh: %v", err)
		}
		if diff := cmp.Diff(entries, parse(t, fresh)); diff != "" {
			t.Fatalf("fresh round-trip mismatch (-want +got):\n%s", diff)
		}
		edited, err := New().Export("en", entries, []byte(s))
		if err != nil {
			t.Fatalf("Export existing: %v", err)
		}
		if diff := cmp.Diff(entries, parse(t, edited)); diff != "" {
			t.Fatalf("existing round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}
