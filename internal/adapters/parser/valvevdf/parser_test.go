package valvevdf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"linguaflow/internal/domain"
)

const sample = "\xEF\xBB\xBF\"lang\"\n{\n\t\"Language\"\t\"french\"\n\t\"Tokens\"\n\t{\n" +
	"\t\t// menu\n" +
	"\t\t\"Menu_Play\"\t\t\"Jouer\"\n" +
	"\t\t\"[english]Menu_Play\"\t\"Play\"\n" +
	"\t\t\"Menu_Quote\"\t\t\"Il dit \\\"oui\\\"\\nfin\"\n" +
	"\t\t\"Menu_Play\"\t\t\"Lancer\"\n" +
	"\t}\n}\n"

func TestParse(t *testing.T) {
	res, err := New().Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []domain.Entry{
		{Key: "Menu_Play", Value: "Lancer", Position: 0},
		{Key: "Menu_Quote", Value: "Il dit \"oui\"\nfin", Position: 1},
	}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	for name, data := range map[string]string{
		"no tokens":    "\"lang\"\n{\n\t\"Language\"\t\"french\"\n}\n",
		"unterminated": "\"lang\"\n{\n\t\"Tokens\"\n\t{\n\t\t\"a\"\t\"b\"\n",
		"no brace":     "\"Tokens\"\n\"a\"\t\"b\"\n",
	} {
		if _, err := Load([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad_Empty(t *testing.T) {
	doc, err := Load([]byte("  \n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Close != -1 || len(doc.Tokens) != 0 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestParse_SkipsBlankKeys(t *testing.T) {
	data := "\"lang\"\n{\n\t\"Tokens\"\n\t{\n\t\t\"\"\t\"no key\"\n\t\t\"ok\"\t\"yes\"\n\t}\n}\n"
	res, err := New().Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []domain.Entry{{Key: "ok", Value: "yes", Position: 0}}
	if diff := cmp.Diff(want, res.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}
