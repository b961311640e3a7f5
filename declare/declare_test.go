package declare_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robloxapi/rbxrojo"
	. "github.com/robloxapi/rbxrojo/declare"
)

func Example() {
	root := Root{
		Instance("Part", Ref("RBX12345678"),
			Name("BasePlate"),
			Property("CanCollide", Bool, true),
			Property("Size", Vector3, 2, 1.2, 4),
			Instance("CFrameValue",
				Name("Value"),
				Property("Value", CFrame, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1),
			),
			Instance("ObjectValue",
				Name("Value"),
				Property("Value", Reference, "RBX12345678"),
			),
		),
	}.Declare()
	part := root.Instances[0]
	fmt.Println(part, part.Get("Size"))
	fmt.Println(part.Children[1].Get("Value"))
	// Output:
	// BasePlate 2, 1.2, 4
	// BasePlate
}

func TestDeclareRoot(t *testing.T) {
	root := Root{
		Metadata("ExplicitAutoJoints", "true"),
		Instance("Workspace", Service,
			Instance("Model", Name("M"), Property("PrimaryPart", Reference, "part")),
			Instance("Part", Ref("part"), Name("P")),
		),
	}.Declare()

	if diff := cmp.Diff(map[string]string{"ExplicitAutoJoints": "true"}, root.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	ws := root.Instances[0]
	if !ws.IsService {
		t.Error("expected service")
	}
	model, part := ws.Children[0], ws.Children[1]
	if part.Reference != "part" {
		t.Errorf("unexpected reference (expected %q, got %q)", "part", part.Reference)
	}
	if v := model.Get("PrimaryPart"); v != (rbxrojo.ValueReference{Instance: part}) {
		t.Errorf("unexpected PrimaryPart %v", v)
	}
}

func TestDeclareProperty(t *testing.T) {
	tests := []struct {
		decl interface{ Declare() rbxrojo.Value }
		want rbxrojo.Value
	}{
		{Property("", Int, 3.0), rbxrojo.ValueInt(3)},
		{Property("", Float, 2), rbxrojo.ValueFloat(2)},
		{Property("", ProtectedString, "x"), rbxrojo.ValueProtectedString("x")},
		{Property("", UDim2, 0.5, 10, 1, -4), rbxrojo.ValueUDim2{
			X: rbxrojo.ValueUDim{Scale: 0.5, Offset: 10},
			Y: rbxrojo.ValueUDim{Scale: 1, Offset: -4},
		}},
		{Property("", NumberSequence, 0, 1, 0, 1, 0.5, 0), rbxrojo.ValueNumberSequence{
			{Time: 0, Value: 1}, {Time: 1, Value: 0.5},
		}},
		{Property("", Vector3, 1, 2), rbxrojo.ValueVector3{}},
		{Property("", Bool, rbxrojo.ValueBool(true)), rbxrojo.ValueBool(true)},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.decl.Declare()); diff != "" {
			t.Errorf("value mismatch (-want +got):\n%s", diff)
		}
	}
}
