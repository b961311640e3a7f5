package rojo

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"

	"github.com/robloxapi/rbxrojo"
	. "github.com/robloxapi/rbxrojo/declare"
	"github.com/robloxapi/rbxrojo/pathname"
	"github.com/robloxapi/rbxrojo/rbxlx"
)

func samplePlace() *rbxrojo.Root {
	return Root{
		Instance("Workspace", Service, Name("Workspace"),
			Instance("Model", Name("Map"),
				Instance("Part", Name("Ground")),
			),
			Instance("Folder", Name("Code"),
				Instance("Script", Name("Main"),
					Property("Source", ProtectedString, "print('main')"),
					Property("Disabled", Bool, true),
				),
				Instance("ModuleScript", Name("Lib"),
					Property("Source", ProtectedString, "return {}"),
					Instance("ModuleScript", Name("Util"),
						Property("Source", ProtectedString, "return 1"),
					),
				),
			),
			Instance("Model", Name("Car"),
				Instance("LocalScript", Name("Drive"),
					Property("Source", ProtectedString, "drive()"),
				),
				Instance("Part", Name("Wheel")),
			),
			Instance("Part", Name("Na:me*"),
				Property("Transparency", Float, math.NaN()),
			),
			Instance("Part", Name("Part")),
			Instance("Part", Name("Part")),
			Instance("Script", Name("init"),
				Property("Source", ProtectedString, "init()"),
			),
		),
		Instance("Lighting", Service, Name("Lighting")),
	}.Declare()
}

func files(project *Project) map[string][]byte {
	m := make(map[string][]byte, len(project.Files))
	for _, f := range project.Files {
		m[f.Path] = f.Data
	}
	return m
}

func TestPlanPlace(t *testing.T) {
	var logs bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &logs, Level: hclog.Info})
	project, err := Plan(samplePlace(), WithName("game"), WithLogger(logger))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	got := files(project)

	paths := make([]string, 0, len(got))
	for p := range got {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	want := []string{
		"default.project.json",
		"src/Workspace/Car/Drive.client.lua",
		"src/Workspace/Car/Wheel.rbxmx",
		"src/Workspace/Car/init.meta.json",
		"src/Workspace/Code/Lib/Util.lua",
		"src/Workspace/Code/Lib/init.lua",
		"src/Workspace/Code/Main.meta.json",
		"src/Workspace/Code/Main.server.lua",
		"src/Workspace/Map.rbxmx",
		"src/Workspace/Na_me_.rbxmx",
		"src/Workspace/Part.rbxmx",
		"src/Workspace/Part_2.rbxmx",
		"src/Workspace/init_.server.lua",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	const projectFile = `{
  "name": "game",
  "tree": {
    "$className": "DataModel",
    "Workspace": {
      "$className": "Workspace",
      "$path": "src/Workspace",
      "$ignoreUnknownInstances": true
    },
    "Lighting": {
      "$className": "Lighting",
      "$ignoreUnknownInstances": true
    }
  }
}
`
	if diff := cmp.Diff(projectFile, string(got[ProjectFile])); diff != "" {
		t.Errorf("project file mismatch (-want +got):\n%s", diff)
	}

	sources := map[string]string{
		"src/Workspace/Code/Main.server.lua": "print('main')",
		"src/Workspace/Code/Lib/init.lua":    "return {}",
		"src/Workspace/Code/Lib/Util.lua":    "return 1",
		"src/Workspace/Car/Drive.client.lua": "drive()",
		"src/Workspace/init_.server.lua":     "init()",
	}
	for p, src := range sources {
		if string(got[p]) != src {
			t.Errorf("%s: unexpected source (expected %q, got %q)", p, src, got[p])
		}
	}

	const disabledMeta = "{\n  \"properties\": {\n    \"Disabled\": true\n  }\n}\n"
	if s := string(got["src/Workspace/Code/Main.meta.json"]); s != disabledMeta {
		t.Errorf("unexpected meta file (expected %q, got %q)", disabledMeta, s)
	}
	const classMeta = "{\n  \"className\": \"Model\"\n}\n"
	if s := string(got["src/Workspace/Car/init.meta.json"]); s != classMeta {
		t.Errorf("unexpected meta file (expected %q, got %q)", classMeta, s)
	}

	root, _, err := rbxlx.Decoder{}.Decode(bytes.NewReader(got["src/Workspace/Map.rbxmx"]))
	if err != nil {
		t.Fatalf("decode model file: %v", err)
	}
	if len(root.Instances) != 1 || root.Instances[0].ClassName != "Model" {
		t.Fatalf("unexpected model content %v", root.Instances)
	}
	if ground := root.Instances[0].FindFirstChild("Ground"); ground == nil || ground.ClassName != "Part" {
		t.Errorf("expected Ground part in model file")
	}

	wantRenames := []Rename{
		{Dir: "src/Workspace", Name: "Na:me*", Segment: "Na_me_"},
		{Dir: "src/Workspace", Name: "Part", Segment: "Part_2"},
		{Dir: "src/Workspace", Name: "init", Segment: "init_"},
	}
	if diff := cmp.Diff(wantRenames, project.Renames); diff != "" {
		t.Errorf("renames mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "renamed instance") {
		t.Errorf("expected renames to be logged, got %q", logs.String())
	}

	if project.Changes.Literals != 1 {
		t.Errorf("expected 1 replaced literal, got %d", project.Changes.Literals)
	}
	if len(project.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", project.Warnings)
	}
}

func TestPlanModel(t *testing.T) {
	root := Root{
		Instance("ModuleScript", Name("Mod"),
			Property("Source", String, "return 2"),
			Instance("Part", Name("CON")),
		),
	}.Declare()
	project, err := Plan(root, WithModel(), WithSourceDir("lib"))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	got := files(project)
	if s := string(got["lib/Mod/init.lua"]); s != "return 2" {
		t.Errorf("unexpected source %q", s)
	}
	if _, ok := got["lib/Mod/CON_.rbxmx"]; !ok {
		t.Errorf("expected renamed model file, got %v", project.Files)
	}
	const projectFile = "{\n  \"name\": \"project\",\n  \"tree\": {\n    \"$path\": \"lib\"\n  }\n}\n"
	if s := string(got[ProjectFile]); s != projectFile {
		t.Errorf("unexpected project file (expected %q, got %q)", projectFile, s)
	}
	if diff := cmp.Diff([]string{"lib", "lib/Mod"}, project.Dirs); diff != "" {
		t.Errorf("dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanPolicy(t *testing.T) {
	root := Root{
		Instance("Folder", Name("a:b"),
			Instance("Script", Name("s")),
		),
	}.Declare()
	project, err := Plan(root, WithModel(), WithPolicy(pathname.POSIX))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if _, ok := files(project)["src/a:b/s.server.lua"]; !ok {
		t.Errorf("expected POSIX names to be kept, got %v", project.Files)
	}
	if len(project.Renames) != 0 {
		t.Errorf("unexpected renames %v", project.Renames)
	}
}

func TestPlanFileNamesDistinct(t *testing.T) {
	root := Root{
		Instance("Workspace", Service, Name("Workspace"),
			Instance("Script", Name("A"),
				Property("Source", ProtectedString, "a()"),
			),
			Instance("ModuleScript", Name("A.server"),
				Property("Source", ProtectedString, "return 0"),
			),
			Instance("Part", Name("B")),
			Instance("Folder", Name("B.rbxmx"),
				Instance("Script", Name("S")),
			),
		),
	}.Declare()
	project, err := Plan(root)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	seen := map[string]bool{}
	for _, f := range project.Files {
		if seen[f.Path] {
			t.Errorf("path %q planned more than once", f.Path)
		}
		seen[f.Path] = true
	}
	for _, d := range project.Dirs {
		if seen[d] {
			t.Errorf("directory %q is also a file", d)
		}
	}
	got := files(project)
	for _, p := range []string{
		"src/Workspace/A.server.lua",
		"src/Workspace/A.server_2.lua",
		"src/Workspace/B.rbxmx",
		"src/Workspace/B.rbxmx_2/S.server.lua",
	} {
		if _, ok := got[p]; !ok {
			t.Errorf("expected file %q", p)
		}
	}
	if string(got["src/Workspace/A.server_2.lua"]) != "return 0" {
		t.Errorf("module source placed in wrong file")
	}

	if _, err := Write(t.TempDir(), project); err != nil {
		t.Errorf("write failed: %v", err)
	}
}

func TestPlanLongNames(t *testing.T) {
	long := strings.Repeat("a", 300)
	root := Root{
		Instance("Part", Name(long)),
		Instance("Part", Name(long)),
		Instance("Script", Name(long), Property("Disabled", Bool, true)),
		Instance("Folder", Name(long),
			Instance("LocalScript", Name(long)),
		),
	}.Declare()
	project, err := Plan(root, WithModel())
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	limit := pathname.Portable.MaxLength
	for _, f := range project.Files {
		for _, seg := range strings.Split(f.Path, "/") {
			if len(seg) > limit {
				t.Errorf("segment of %q exceeds %d bytes (%d)", f.Path, limit, len(seg))
			}
		}
	}
	if _, err := Write(t.TempDir(), project); err != nil {
		t.Errorf("write failed: %v", err)
	}
}

func TestPlanOptions(t *testing.T) {
	if _, err := Plan(nil); err == nil {
		t.Error("expected error for nil root")
	}
	if _, err := Plan(&rbxrojo.Root{}, WithName("")); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := Plan(&rbxrojo.Root{}, WithLogger(nil)); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestWrite(t *testing.T) {
	project, err := Plan(samplePlace())
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "out")

	stats, err := Write(dir, project)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if stats.Written != len(project.Files) || stats.Unchanged != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	for _, f := range project.Files {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b, f.Data) {
			t.Errorf("%s: content mismatch", f.Path)
		}
	}

	stats, err = Write(dir, project)
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if stats.Written != 0 || stats.Unchanged != len(project.Files) {
		t.Errorf("unexpected stats on rewrite %+v", stats)
	}

	main := filepath.Join(dir, "src", "Workspace", "Code", "Main.server.lua")
	if err := os.WriteFile(main, []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err = Write(dir, project)
	if err != nil {
		t.Fatalf("third write failed: %v", err)
	}
	if stats.Written != 1 {
		t.Errorf("expected 1 file written, got %+v", stats)
	}
	if b, _ := os.ReadFile(main); string(b) != "print('main')" {
		t.Errorf("expected file to be restored, got %q", b)
	}
}

func TestWriteRejectsEscapingPaths(t *testing.T) {
	project := &Project{Files: []File{{Path: "../escape.lua", Data: []byte("x")}}}
	if _, err := Write(t.TempDir(), project); err == nil {
		t.Error("expected error for path outside of project")
	}
}
