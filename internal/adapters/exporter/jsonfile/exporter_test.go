package jsonfile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
	parser "linguaflow/internal/adapters/parser/jsonfile"
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

const nested = `{
  "greeting": "Hi",
  "count": 3,
  "nav": {
    "home": "Home"
  }
}
`

func TestExport_UpdatesInPlace(t *testing.T) {
	out, err := New().Export("de", []domain.Entry{{Key: "greeting", Value: "Hello"}}, []byte(nested))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	want := strings.Replace(nested, `"Hi"`, `"Hello"`, 1)
	if string(out) != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestExport_NoChangeKeepsBytes(t *testing.T) {
	entries := parse(t, []byte(nested))
	out, err := New().Export("de", entries, []byte(nested))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if string(out) != nested {
		t.Fatalf("output changed:\n%s", out)
	}
}

func TestExport_AppendsIntoDeepestParent(t *testing.T) {
	entries := []domain.Entry{
		{Key: "nav.about", Value: "About"},
		{Key: "nav.menu.open", Value: "Open"},
		{Key: "footer.copy", Value: "(c)"},
	}
	out, err := New().Export("de", entries, []byte(nested))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if got := gjson.GetBytes(out, "nav.about").String(); got != "About" {
		t.Fatalf("nav.about = %q\n%s", got, out)
	}
	if got := gjson.GetBytes(out, `nav.menu\.open`).String(); got != "Open" {
		t.Fatalf("nav[menu.open] = %q\n%s", got, out)
	}
	if got := gjson.GetBytes(out, `footer\.copy`).String(); got != "(c)" {
		t.Fatalf("footer.copy = %q\n%s", got, out)
	}
	if got := gjson.GetBytes(out, "count").Int(); got != 3 {
		t.Fatalf("non-string leaf lost: count = %d", got)
	}
	var keys []string
	for _, e := range parse(t, out) {
		keys = append(keys, e.Key)
	}
	if diff := cmp.Diff([]string{"greeting", "nav.home", "nav.about", "nav.menu.open", "footer.copy"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(out), "\n    \"about\": \"About\"") {
		t.Fatalf("expected re-indented output, got:\n%s", out)
	}
}

func TestExport_FlatWithoutExisting(t *testing.T) {
	entries := []domain.Entry{{Key: "b.c", Value: "1"}, {Key: "a", Value: "<2>"}}
	out, err := New().Export("de", entries, nil)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	want := "{\n  \"b.c\": \"1\",\n  \"a\": \"<2>\"\n}\n"
	if string(out) != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out, want)
	}
}

func TestExport_RepeatedKeysRenderedFlat(t *testing.T) {
	existing := []byte(`{"a":"1","b":"2","a":"3"}`)
	out, err := New().Export("de", []domain.Entry{{Key: "b", Value: "x"}}, existing)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	want := []domain.Entry{{Key: "a", Value: "3", Position: 0}, {Key: "b", Value: "x", Position: 1}}
	if diff := cmp.Diff(want, parse(t, out)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_SpecialCharactersInKeys(t *testing.T) {
	entries := []domain.Entry{{Key: "what?", Value: "q"}, {Key: "a*b", Value: "star"}, {Key: "nav.1", Value: "one"}, {Key: "#tag", Value: "t"}}
	out, err := New().Export("de", entries, []byte(nested))
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	got := map[string]string{}
	for _, e := range parse(t, out) {
		got[e.Key] = e.Value
	}
	for _, e := range entries {
		if got[e.Key] != e.Value {
			t.Fatalf("%q = %q, want %q\n%s", e.Key, got[e.Key], e.Value, out)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	samples := []string{
		nested,
		`{"greeting":"Hello","farewell":"Bye"}`,
		`{"a":{"b":{"c":"deep"}},"a.b.d":"literal","n":1}`,
		"{\n\t\"tab\": \"indented\",\n\t\"multi\": \"line\\nbreak\"\n}",
		`{}`,
		`{"":"no key","a":"y"}`,
		`{"$price":"Price: $1","title":"T"}`,
	}
	for _, s := range samples {
		entries := parse(t, []byte(s))
		fresh, err := New().Export("en", entries, nil)
		if err != nil {
			t.Fatalf("Export fresh: %v", err)
		}
		if diff := cmp.Diff(entries, parse(t, fresh)); diff != "" {
			t.Fatalf("fresh round-trip mismatch for %s (-want +got):\n%s", s, diff)
		}
		edited, err := New().Export("en", entries, []byte(s))
		if err != nil {
			t.Fatalf("Export existing: %v", err)
		}
		if string(edited) != s {
			t.Fatalf("existing round-trip changed bytes:\n%s\nwant:\n%s", edited, s)
		}
	}
}
