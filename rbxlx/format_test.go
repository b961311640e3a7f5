package rbxlx

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/sanitize"
	"github.com/robloxapi/rbxrojo/xml"
)

func encodeRoot(t *testing.T, enc Encoder, root *rbxrojo.Root) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	warn, err := enc.Encode(&buf, root)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.String(), warn
}

func decodeString(t *testing.T, s string) (*rbxrojo.Root, error) {
	t.Helper()
	root, warn, err := Decoder{}.Decode(strings.NewReader(s))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return root, warn
}

func hasChanges(err error) (sanitize.Changes, bool) {
	var w xml.SanitizeWarning
	if errors.As(err, &w) {
		return w.Changes, true
	}
	return sanitize.Changes{}, false
}

func TestRoundTrip(t *testing.T) {
	part := rbxrojo.NewInstance("Part")
	part.SetName("Part")
	props := map[string]rbxrojo.Value{
		"Anchored":     rbxrojo.ValueBool(true),
		"Count":        rbxrojo.ValueInt(-42),
		"Big":          rbxrojo.ValueInt64(1 << 40),
		"Transparency": rbxrojo.ValueFloat(0.5),
		"Mass":         rbxrojo.ValueDouble(1.25),
		"Material":     rbxrojo.ValueToken(256),
		"Source":       rbxrojo.ValueProtectedString("print(1 < 2 and 'a' or \"b\")"),
		"Texture":      rbxrojo.ValueContent("rbxasset://textures/a.png"),
		"Data":         rbxrojo.ValueBinaryString([]byte{0, 1, 2, 'n', 'a', 'n', 0xFF}),
		"Size":         rbxrojo.ValueVector3{X: 4, Y: 1.5, Z: -2},
		"Offset":       rbxrojo.ValueVector2{X: 1, Y: 2},
		"Color":        rbxrojo.ValueColor3{R: 1, G: 0.5, B: 0.25},
		"Color8":       rbxrojo.ValueColor3uint8{R: 255, G: 128, B: 0},
		"CFrame": rbxrojo.ValueCFrame{
			Position: rbxrojo.ValueVector3{X: 1, Y: 2, Z: 3},
			Rotation: [9]float32{0, 0, 1, 0, 1, 0, -1, 0, 0},
		},
		"Pad":   rbxrojo.ValueUDim{Scale: 0.5, Offset: 10},
		"Pos":   rbxrojo.ValueUDim2{X: rbxrojo.ValueUDim{Scale: 0.25, Offset: -3}, Y: rbxrojo.ValueUDim{Scale: 1, Offset: 7}},
		"Range": rbxrojo.ValueNumberRange{Min: 1, Max: 2.5},
		"Seq": rbxrojo.ValueNumberSequence{
			{Time: 0, Value: 1, Envelope: 0},
			{Time: 1, Value: 0.5, Envelope: 0.25},
		},
		"Colors": rbxrojo.ValueColorSequence{
			{Time: 0, Value: rbxrojo.ValueColor3{R: 1}, Envelope: 0},
			{Time: 1, Value: rbxrojo.ValueColor3{B: 1}, Envelope: 0},
		},
	}
	for name, value := range props {
		part.Set(name, value)
	}
	workspace := rbxrojo.NewInstance("Workspace")
	workspace.AddChild(part)
	root := &rbxrojo.Root{
		Instances: []*rbxrojo.Instance{workspace},
		Metadata:  map[string]string{"ExplicitAutoJoints": "true"},
	}

	s, warn := encodeRoot(t, Encoder{}, root)
	if warn != nil {
		t.Errorf("unexpected encode warning: %v", warn)
	}
	decoded, warn := decodeString(t, s)
	if warn != nil {
		t.Errorf("unexpected decode warning: %v", warn)
	}
	if diff := cmp.Diff(root.Metadata, decoded.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if len(decoded.Instances) != 1 || len(decoded.Instances[0].Children) != 1 {
		t.Fatalf("unexpected tree shape")
	}
	got := decoded.Instances[0].Children[0]
	if got.ClassName != "Part" || got.Reference != part.Reference {
		t.Errorf("unexpected instance %s (%s)", got.ClassName, got.Reference)
	}
	for name, want := range props {
		if diff := cmp.Diff(want, got.Get(name)); diff != "" {
			t.Errorf("property %s mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestEncodeNonFiniteNumbers(t *testing.T) {
	inst := rbxrojo.NewInstance("Part")
	inst.Set("A", rbxrojo.ValueFloat(float32(math.NaN())))
	inst.Set("B", rbxrojo.ValueDouble(math.Inf(1)))
	inst.Set("C", rbxrojo.ValueVector3{X: float32(math.Inf(-1)), Y: 1, Z: 2})
	root := &rbxrojo.Root{Instances: []*rbxrojo.Instance{inst}}

	s, warn := encodeRoot(t, Encoder{Model: true}, root)
	for _, bad := range []string{"NaN", "Inf"} {
		if strings.Contains(s, bad) {
			t.Errorf("output contains %q", bad)
		}
	}
	changes, ok := hasChanges(warn)
	if !ok {
		t.Fatalf("expected sanitize warning, got %v", warn)
	}
	if changes.Literals != 3 {
		t.Errorf("expected 3 replaced literals, got %d", changes.Literals)
	}

	decoded, _ := decodeString(t, s)
	got := decoded.Instances[0]
	if v := got.Get("A"); v != rbxrojo.ValueFloat(0) {
		t.Errorf("unexpected A: %v", v)
	}
	if v := got.Get("B"); v != rbxrojo.ValueDouble(0) {
		t.Errorf("unexpected B: %v", v)
	}
	if v := got.Get("C"); v != (rbxrojo.ValueVector3{X: 0, Y: 1, Z: 2}) {
		t.Errorf("unexpected C: %v", v)
	}
}

func TestEncodeIllegalCharacters(t *testing.T) {
	inst := rbxrojo.NewInstance("StringValue")
	inst.SetName("A\x00B")
	inst.Set("Value", rbxrojo.ValueString("x\x01y\uFFFEz"))
	inst.Set("Source", rbxrojo.ValueProtectedString("a\x02]]>b"))
	root := &rbxrojo.Root{Instances: []*rbxrojo.Instance{inst}}

	s, warn := encodeRoot(t, Encoder{Model: true}, root)
	changes, ok := hasChanges(warn)
	if !ok {
		t.Fatalf("expected sanitize warning, got %v", warn)
	}
	if changes.Chars != 4 {
		t.Errorf("expected 4 removed characters, got %d", changes.Chars)
	}
	decoded, warn := decodeString(t, s)
	if warn != nil {
		t.Errorf("unexpected decode warning: %v", warn)
	}
	got := decoded.Instances[0]
	if name := got.Name(); name != "AB" {
		t.Errorf("expected name %q, got %q", "AB", name)
	}
	if v := got.Get("Value"); string(v.(rbxrojo.ValueString)) != "xyz" {
		t.Errorf("unexpected Value: %q", v)
	}
	if v := got.Get("Source"); string(v.(rbxrojo.ValueProtectedString)) != "a]]>b" {
		t.Errorf("unexpected Source: %q", v)
	}
}

func TestSharedStringsUnchanged(t *testing.T) {
	payload := []byte("nan\x00\x01\xFF<]]>&#0;1.#IND")
	a := rbxrojo.NewInstance("MeshPart")
	a.Set("PhysicalConfigData", rbxrojo.ValueSharedString(payload))
	b := rbxrojo.NewInstance("MeshPart")
	b.Set("PhysicalConfigData", rbxrojo.ValueSharedString(payload))
	root := &rbxrojo.Root{Instances: []*rbxrojo.Instance{a, b}}

	s, warn := encodeRoot(t, Encoder{}, root)
	if warn != nil {
		t.Errorf("unexpected encode warning: %v", warn)
	}
	if n := strings.Count(s, "<SharedString md5="); n != 1 {
		t.Errorf("expected 1 shared string entry, got %d", n)
	}
	decoded, warn := decodeString(t, s)
	if warn != nil {
		t.Errorf("unexpected decode warning: %v", warn)
	}
	for _, inst := range decoded.Instances {
		v, _ := inst.Get("PhysicalConfigData").(rbxrojo.ValueSharedString)
		if !bytes.Equal(v, payload) {
			t.Errorf("shared string changed: %q", v)
		}
	}
}

func TestEncodeReferences(t *testing.T) {
	outside := rbxrojo.NewInstance("Part")
	model := rbxrojo.NewInstance("Model")
	part := rbxrojo.NewInstance("Part")
	model.AddChild(part)
	model.Set("PrimaryPart", rbxrojo.ValueReference{Instance: part})
	part.Set("Target", rbxrojo.ValueReference{Instance: outside})
	part.Set("Empty", rbxrojo.ValueReference{})
	root := &rbxrojo.Root{Instances: []*rbxrojo.Instance{model}}

	s, warn := encodeRoot(t, Encoder{Model: true}, root)
	if n := errors.Len(warn); n != 1 {
		t.Errorf("expected 1 warning, got %d: %v", n, warn)
	}
	decoded, warn := decodeString(t, s)
	if warn != nil {
		t.Errorf("unexpected decode warning: %v", warn)
	}
	gotModel := decoded.Instances[0]
	gotPart := gotModel.Children[0]
	if v := gotModel.Get("PrimaryPart").(rbxrojo.ValueReference); v.Instance != gotPart {
		t.Errorf("PrimaryPart not resolved")
	}
	if v := gotPart.Get("Target").(rbxrojo.ValueReference); v.Instance != nil {
		t.Errorf("expected outside reference to be empty, got %v", v)
	}
	if v := gotPart.Get("Empty").(rbxrojo.ValueReference); v.Instance != nil {
		t.Errorf("expected empty reference, got %v", v)
	}
}

func TestDecodeRepairs(t *testing.T) {
	const doc = `<roblox version="4">
	<Item class="Part" referent="RBX0">
		<Properties>
			<string name="Name">a&#0;b&#x1F600;` + "\x01" + `</string>
			<float name="F">1.#IND</float>
			<double name="D">-nan(ind)</double>
			<NumberRange name="R">nan 1 </NumberRange>
			<BinaryString name="B">AAE=</BinaryString>
			<Faces name="Unknown"><faces>3</faces></Faces>
			<Ref name="Missing">RBXMISSING</Ref>
		</Properties>
	</Item>
</roblox>`
	root, warn := decodeString(t, doc)
	changes, ok := hasChanges(warn)
	if !ok {
		t.Fatalf("expected sanitize warning, got %v", warn)
	}
	if want := (sanitize.Changes{Chars: 1, Literals: 3, CharRefs: 1}); changes != want {
		t.Errorf("unexpected changes (expected %+v, got %+v)", want, changes)
	}
	if n := errors.Len(warn); n != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", n, warn)
	}
	inst := root.Instances[0]
	if name := inst.Name(); name != "ab\U0001F600" {
		t.Errorf("unexpected name %q", name)
	}
	if v := inst.Get("F"); v != rbxrojo.ValueFloat(0) {
		t.Errorf("unexpected F: %v", v)
	}
	if v := inst.Get("D"); v != rbxrojo.ValueDouble(0) {
		t.Errorf("unexpected D: %v", v)
	}
	if v := inst.Get("R"); v != (rbxrojo.ValueNumberRange{Min: 0, Max: 1}) {
		t.Errorf("unexpected R: %v", v)
	}
	if v := inst.Get("B"); !bytes.Equal(v.(rbxrojo.ValueBinaryString), []byte{0, 1}) {
		t.Errorf("unexpected B: %v", v)
	}
	if v := inst.Get("Unknown"); v != nil {
		t.Errorf("expected unknown property to be skipped, got %v", v)
	}
}

func TestDiscardInvalidProperties(t *testing.T) {
	const doc = `<roblox version="4"><Item class="Part"><Properties>` +
		`<int name="I">abc</int><Vector3 name="V"><X>1</X></Vector3>` +
		`</Properties></Item></roblox>`
	root, _, err := Decoder{}.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if v := root.Instances[0].Get("I"); v != rbxrojo.ValueInt(0) {
		t.Errorf("expected zero int, got %v", v)
	}
	if v := root.Instances[0].Get("V"); v != (rbxrojo.ValueVector3{}) {
		t.Errorf("expected zero Vector3, got %v", v)
	}

	root, _, err = Decoder{DiscardInvalidProperties: true}.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(root.Instances[0].Properties); n != 0 {
		t.Errorf("expected no properties, got %d", n)
	}
}

func TestDecodeSyntaxError(t *testing.T) {
	_, _, err := Decoder{}.Decode(strings.NewReader(`<roblox><Item class="Part">`))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestFormatFloat(t *testing.T) {
	for _, c := range []struct {
		f    float32
		want string
	}{
		{1.5, "1.5"},
		{1e-5, "9.99999975e-006"},
		{1 << 70, "1.18059162e+021"},
	} {
		if got := formatFloat(c.f, 9); got != c.want {
			t.Errorf("formatFloat(%v) (expected %q, got %q)", c.f, c.want, got)
		}
	}
}
