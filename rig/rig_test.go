package rig

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/config"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/xform"
)

const sampleDescriptor = `# hero rig
n hero

s hero.glb
m  meshes/hero body.glb
w hero.glb
a animations/hero@walk.glb
a animations/hero@run.glb
`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(sampleDescriptor))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	expected := &Descriptor{
		Name:     "hero",
		Skeleton: "hero.glb",
		Mesh:     filepath.FromSlash("meshes/hero body.glb"),
		Weights:  "hero.glb",
		Animations: []string{
			filepath.FromSlash("animations/hero@walk.glb"),
			filepath.FromSlash("animations/hero@run.glb"),
		},
	}
	if !reflect.DeepEqual(d, expected) {
		t.Errorf("Parse()=%+v; expected %+v", d, expected)
	}

	data, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil || !reflect.DeepEqual(back, d) {
		t.Errorf("Parse(Marshal())=%+v, %v; expected %+v", back, err, d)
	}
}

var parseErrorTests = []string{
	"x something",
	"n",
	"n a\nn b",
	"s a.glb\ns b.glb",
}

func TestParseErrors(t *testing.T) {
	for _, test := range parseErrorTests {
		if _, err := Parse([]byte(test)); err == nil {
			t.Errorf("Parse(%q) succeeded; expected error", test)
		}
	}
}

func TestAnimationFile(t *testing.T) {
	if f := AnimationFile("hero", "jump/left", ".glb"); f != "hero@jump_left.glb" {
		t.Errorf("AnimationFile()=%q; expected %q", f, "hero@jump_left.glb")
	}
}

func sampleModel() *model.Model {
	sk := skeleton.New()
	root := sk.AddRoot(mgl64.Ident4(), "root")
	sk.AddChild(root, mgl64.Translate3D(0, 1, 0), "tip")

	m := model.New("stick", sk)
	m.Mesh = &skin.VertexBuffer{
		Points:  []mgl64.Vec3{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Normals: []mgl64.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices: []uint32{0, 1, 2},
	}
	m.Weights = skin.NewSparseWeights(3, 2)
	m.Weights.Set(0, 0, 1)
	m.Weights.Set(1, 1, 1)
	m.Weights.Set(2, 1, 1)

	swing := anim.IdentityFrame(1, 2)
	swing.Transforms[0] = mgl64.HomogRotate3DZ(math.Pi / 2)
	nod := anim.IdentityFrame(2, 2)
	nod.Transforms[1] = mgl64.HomogRotate3DX(0.5)
	m.Animations = []*anim.Animation{
		anim.New("swing", []anim.Frame{anim.IdentityFrame(0, 2), swing}),
		anim.New("nod", []anim.Frame{anim.IdentityFrame(0, 2), nod}),
	}
	return m
}

func TestWriteLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "rig")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	m := sampleModel()
	path, err := Write(dir, m, "glb")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, AnimationsDir, "stick@swing.glb")); err != nil {
		t.Errorf("animation file: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "stick" || got.Skeleton.JointCount() != 2 || got.Mesh.VertexCount() != 3 {
		t.Fatalf("Load()=%s with %d joints %d vertices", got.Name, got.Skeleton.JointCount(), got.Mesh.VertexCount())
	}
	if names := got.AnimationNames(); !reflect.DeepEqual(names, []string{"swing", "nod"}) {
		t.Errorf("AnimationNames()=%v; expected [swing nod]", names)
	}

	for _, name := range []string{"swing", "nod"} {
		want := m.Animation(name)
		a := got.Animation(name)
		last := len(want.Keyframes) - 1
		D := got.Deformations(a.Keyframes[len(a.Keyframes)-1])
		expected := m.Deformations(want.Keyframes[last])
		for j := range expected {
			if !xform.ApproxEqual(D[j], expected[j], 1e-4) {
				t.Errorf("%s deformation %d=%v; expected %v", name, j, D[j], expected[j])
			}
		}
	}
	if w := got.Weights.Weight(2, 1); math.Abs(w-1) > 1e-6 {
		t.Errorf("Weight(2,1)=%v; expected 1", w)
	}
}

func TestLoadErrors(t *testing.T) {
	dir, err := ioutil.TempDir("", "rig")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := ioutil.WriteFile(path, []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
		return path
	}
	write("broken.gltf", "{not json")

	var loadErrorTests = []struct {
		path string
		code Code
	}{
		{filepath.Join(dir, "absent.rig"), ErrFileNotFound},
		{write("garbage.rig", "q what"), ErrFormatNotRecognized},
		{write("noskeleton.rig", "n empty"), ErrFormatNotRecognized},
		{write("missing.rig", "s absent.glb"), ErrFileNotFound},
		{write("wrongext.rig", "s model.fbx"), ErrFormatNotRecognized},
		{write("broken.rig", "s broken.gltf"), ErrComponentLoad},
	}
	for _, test := range loadErrorTests {
		_, err := Load(test.path)
		if code := CodeOf(err); code != test.code {
			t.Errorf("CodeOf(Load(%q))=%v; expected %v (%v)", filepath.Base(test.path), code, test.code, err)
		}
	}
	if code := CodeOf(nil); code != NoError {
		t.Errorf("CodeOf(nil)=%v; expected %v", code, NoError)
	}
}

func TestParseUTF8(t *testing.T) {
	d, err := Parse([]byte("n héro\na animations/héro@歩く.glb\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Name != "héro" || len(d.Animations) != 1 || d.Animations[0] != filepath.FromSlash("animations/héro@歩く.glb") {
		t.Errorf("Parse()=%+v; expected name héro with animation 歩く", d)
	}
}

func TestWriteLoadNonLatinNames(t *testing.T) {
	dir, err := ioutil.TempDir("", "rig")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	m := sampleModel()
	m.Name = "герой"
	m.Animations[0].Name = "歩く"
	path, err := Write(dir, m, "glb")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if names := got.AnimationNames(); got.Name != "герой" || !reflect.DeepEqual(names, []string{"歩く", "nod"}) {
		t.Errorf("Load()=%q with animations %v; expected герой with [歩く nod]", got.Name, names)
	}
}

func TestWriteUnencodableLeavesNothing(t *testing.T) {
	dir, err := ioutil.TempDir("", "rig")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	defer config.SetEncoding(config.DefaultEncoding)
	if err := config.SetEncoding("Windows 1252"); err != nil {
		t.Fatal(err)
	}

	m := sampleModel()
	m.Animations[0].Name = "歩く"
	if _, err := Write(dir, m, "glb"); err == nil {
		t.Fatalf("Write with 歩く as Windows 1252 succeeded; expected error")
	}
	if files, _ := ioutil.ReadDir(dir); len(files) != 0 {
		t.Errorf("Write left %d files behind", len(files))
	}
}
