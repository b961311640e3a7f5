package xml

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robloxapi/rbxrojo/sanitize"
)

func decode(t *testing.T, s string) *Document {
	t.Helper()
	doc := new(Document)
	if _, err := doc.ReadFrom(strings.NewReader(s)); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return doc
}

func encode(t *testing.T, doc *Document) string {
	t.Helper()
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.String()
}

func TestDecodeDocument(t *testing.T) {
	doc := decode(t, `<?xml version="1.0"?>
<!-- generated -->
<roblox version="4">
	<Item class="Part" referent="RBX0">
		<Properties>
			<string name="Name">A &amp; B</string>
			<float name="X">1.5</float>
		</Properties>
	</Item>
</roblox>`)
	if doc.Root.StartName != "roblox" {
		t.Fatalf("unexpected root %q", doc.Root.StartName)
	}
	if doc.Indent != "\t" {
		t.Errorf("expected tab indent, got %q", doc.Indent)
	}
	item := doc.Root.Tags[0]
	if class, _ := item.AttrValue("class"); class != "Part" {
		t.Errorf("unexpected class %q", class)
	}
	props := item.Tags[0].Tags
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	if props[0].Text != "A & B" {
		t.Errorf("unexpected text %q", props[0].Text)
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", doc.Warnings)
	}
}

func TestDecodeCharRefs(t *testing.T) {
	doc := decode(t, `<roblox version="4"><string>a&#0;b&#x1F;c&#65;&#x263A;&#xD800;&#99999999999;d&#;e&bogus;</string></roblox>`)
	got := doc.Root.Tags[0].Text
	if want := "abcA☺d&#;e&bogus;"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if doc.Changes.CharRefs != 4 {
		t.Errorf("expected 4 removed references, got %d", doc.Changes.CharRefs)
	}
	var warn SanitizeWarning
	if len(doc.Warnings) != 1 || !errors.As(doc.Warnings[0], &warn) {
		t.Errorf("expected sanitize warning, got %v", doc.Warnings)
	}
}

func TestDecodeCDataSections(t *testing.T) {
	doc := decode(t, `<roblox version="4"><ProtectedString><![CDATA[a]]]]><![CDATA[>b]]></ProtectedString></roblox>`)
	if got := string(doc.Root.Tags[0].CData); got != "a]]>b" {
		t.Errorf("expected joined sections, got %q", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, s := range []string{
		``,
		`<model version="4"></model>`,
		`<roblox></roblox>`,
		`<roblox version="3"></roblox>`,
		`<roblox version="4"><a></roblox>`,
		`<roblox version="4"><a b="<"></a></roblox>`,
	} {
		doc := new(Document)
		if _, err := doc.ReadFrom(strings.NewReader(s)); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestEncodeSanitizes(t *testing.T) {
	root := NewRoot(
		NewProp("string", "Name", "A\x00B<\x1b>", ClassText),
		NewProp("float", "X", "NaN", ClassNumeric),
		NewProp("NumberRange", "R", "-inf 1.#IND 2", ClassNumericList),
		NewProp("BinaryString", "B", "bmFu\x00", ClassOpaque),
	)
	root.Attr = []Attr{{Name: "version", Value: "4\x01"}}
	doc := &Document{Root: root}
	got := encode(t, doc)
	want := `<roblox version="4">` +
		`<string name="Name">AB&lt;&gt;</string>` +
		`<float name="X">0</float>` +
		`<NumberRange name="R">0 0 2</NumberRange>` +
		"<BinaryString name=\"B\">bmFu\x00</BinaryString>" +
		`</roblox>`
	if got != want {
		t.Errorf("unexpected output:\n%s", cmp.Diff(want, got))
	}
	if diff := cmp.Diff(sanitize.Changes{Chars: 3, Literals: 3}, doc.Changes); diff != "" {
		t.Errorf("unexpected changes (-want +got):\n%s", diff)
	}
	if len(doc.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", doc.Warnings)
	}
}

func TestEncodeEscapes(t *testing.T) {
	root := NewRoot(NewProp("string", "Name", "  lead\r\n\"q\" 'a' & end", ClassText))
	root.Attr = nil
	got := encode(t, &Document{Root: root})
	want := `<roblox><string name="Name">&#32;&#32;lead&#13;` + "\n" + `&quot;q&quot; &apos;a&apos; &amp; end</string></roblox>`
	if got != want {
		t.Errorf("unexpected output:\n%s", cmp.Diff(want, got))
	}
}

func TestEncodeCData(t *testing.T) {
	tag := &Tag{StartName: "ProtectedString", CData: []byte("x]]>y\x02"), NoIndent: true}
	root := &Tag{StartName: "roblox", Tags: []*Tag{tag}}
	got := encode(t, &Document{Root: root})
	want := `<roblox><ProtectedString><![CDATA[x]]]]><![CDATA[>y]]></ProtectedString></roblox>`
	if got != want {
		t.Errorf("unexpected output:\n%s", cmp.Diff(want, got))
	}
}

func TestRoundTrip(t *testing.T) {
	text := "line one\nline two\r\n\ttabbed <tag> & é\U0001F600"
	root := NewRoot(&Tag{
		StartName: "Item",
		Attr:      []Attr{{Name: "class", Value: "Script"}},
		Tags: []*Tag{{
			StartName: "Properties",
			Tags: []*Tag{
				NewProp("string", "Source", text, ClassText),
				NewProp("double", "D", "0.25", ClassNumeric),
			},
		}},
	})
	doc := &Document{Indent: "\t", Root: root}
	out := encode(t, doc)

	dec := decode(t, out)
	props := dec.Root.Tags[0].Tags[0].Tags
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	if props[0].Text != text {
		t.Errorf("text did not round-trip:\n%s", cmp.Diff(text, props[0].Text))
	}
	if props[1].Text != "0.25" {
		t.Errorf("unexpected numeric text %q", props[1].Text)
	}
	if dec.Indent != "\t" {
		t.Errorf("indent not detected, got %q", dec.Indent)
	}
}

func TestSetAttrValue(t *testing.T) {
	tag := &Tag{}
	tag.SetAttrValue("a", "1")
	tag.SetAttrValue("a", "2")
	if v, _ := tag.AttrValue("a"); v != "2" {
		t.Errorf("expected 2, got %q", v)
	}
	tag.SetAttrValue("a", "")
	if _, ok := tag.AttrValue("a"); ok {
		t.Error("expected attribute to be removed")
	}
}

func TestDecodeMalformedStartTag(t *testing.T) {
	doc := decode(t, `<roblox version="4"><a b></a><c>x</c></roblox>`)
	if len(doc.Root.Tags) != 1 || doc.Root.Tags[0].StartName != "c" {
		t.Fatalf("expected malformed tag to be dropped, got %v", doc.Root.Tags)
	}
	var serr *SyntaxError
	if len(doc.Warnings) != 1 || !errors.As(doc.Warnings[0], &serr) {
		t.Errorf("expected syntax warning, got %v", doc.Warnings)
	}
}

func TestDecodePrefix(t *testing.T) {
	doc := decode(t, "  <roblox version=\"4\">\n    <a>x</a>\n  </roblox>\ntrailer")
	if doc.Prefix != "  " || doc.Indent != "  " {
		t.Errorf("unexpected prefix %q and indent %q", doc.Prefix, doc.Indent)
	}
	if doc.Suffix != "\ntrailer" {
		t.Errorf("unexpected suffix %q", doc.Suffix)
	}
	if got := encode(t, doc); got != "  <roblox version=\"4\">\n    <a>x</a>\n  </roblox>\ntrailer" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestEncodeExcludeRoot(t *testing.T) {
	root := NewRoot(
		&Tag{StartName: "a", Text: "1"},
		&Tag{StartName: "bad name"},
		&Tag{StartName: "b", Empty: true},
	)
	doc := &Document{Root: root, ExcludeRoot: true, Indent: "\t"}
	if got, want := encode(t, doc), "<a>1</a>\n<b/>"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if len(doc.Warnings) != 1 {
		t.Errorf("expected warning for malformed name, got %v", doc.Warnings)
	}
}
