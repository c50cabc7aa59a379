package rig

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/skinpose/gltfio"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/utils"
)

// Load reads a descriptor and assembles the model from its components.
// The model name defaults to the descriptor file name.
func Load(path string) (*model.Model, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fileError("rig", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Code: ErrFormatNotRecognized, Component: "rig", Path: path, Err: err}
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d.Load(filepath.Dir(path))
}

type loader struct {
	dir  string
	docs map[string]*gltf.Document
}

func (l *loader) open(component, rel string) (*gltf.Document, string, error) {
	path := filepath.Join(l.dir, rel)
	if doc, ok := l.docs[path]; ok {
		return doc, path, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
	default:
		return nil, path, &LoadError{Code: ErrFormatNotRecognized, Component: component, Path: path,
			Err: errors.Errorf("Unknown file extension %q", ext)}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, path, fileError(component, path, err)
	}
	doc, err := gltfio.Open(path)
	if err != nil {
		return nil, path, &LoadError{Code: ErrComponentLoad, Component: component, Path: path, Err: err}
	}
	l.docs[path] = doc
	return doc, path, nil
}

// Load assembles the model with paths resolved against dir. A missing
// skeleton record falls back to the mesh file, and missing weights to the
// mesh file as well.
func (d *Descriptor) Load(dir string) (*model.Model, error) {
	l := &loader{dir: dir, docs: make(map[string]*gltf.Document)}
	fail := func(component, path string, err error) error {
		return &LoadError{Code: ErrComponentLoad, Component: component, Path: path, Err: err}
	}

	skPath := d.Skeleton
	if skPath == "" {
		skPath = d.Mesh
	}
	if skPath == "" {
		return nil, &LoadError{Code: ErrFormatNotRecognized, Component: "rig", Path: dir,
			Err: errors.New("Descriptor names no skeleton")}
	}
	doc, path, err := l.open("skeleton", skPath)
	if err != nil {
		return nil, err
	}
	sk, _, err := gltfio.ReadSkeleton(doc)
	if err != nil {
		return nil, fail("skeleton", path, err)
	}
	m := model.New(d.Name, sk)

	if d.Mesh != "" {
		doc, path, err := l.open("mesh", d.Mesh)
		if err != nil {
			return nil, err
		}
		ref, ok := gltfio.FindMesh(doc)
		if !ok {
			return nil, fail("mesh", path, errors.New("No mesh in file"))
		}
		if m.Mesh, err = gltfio.ReadMesh(doc, ref); err != nil {
			return nil, fail("mesh", path, err)
		}

		wPath := d.Weights
		if wPath == "" {
			wPath = d.Mesh
		}
		wdoc, path, err := l.open("weights", wPath)
		if err != nil {
			return nil, err
		}
		if wref, ok := gltfio.FindMesh(wdoc); ok {
			if m.Weights, err = gltfio.ReadWeights(wdoc, wref, sk, gltfio.MapJoints(wdoc, sk)); err != nil {
				return nil, fail("weights", path, err)
			}
		} else {
			return nil, fail("weights", path, errors.New("No skinned mesh in file"))
		}
	} else if d.Weights != "" {
		log.Printf("[rig] Model '%s' has weights '%s' without a mesh, ignored", d.Name, d.Weights)
	}

	names := utils.NewNameGenerator(0)
	for _, rel := range d.Animations {
		doc, path, err := l.open("animation", rel)
		if err != nil {
			return nil, err
		}
		jm := gltfio.MapJoints(doc, sk)
		if len(jm) < sk.JointCount() {
			log.Printf("[rig] '%s' drives %d of %d joints", path, len(jm), sk.JointCount())
		}
		anims, err := gltfio.ReadAnimations(doc, sk, jm)
		if err != nil {
			return nil, fail("animation", path, err)
		}
		if len(anims) == 0 {
			log.Printf("[rig] '%s' has no animations", path)
		}
		for _, a := range anims {
			a.Name = names.Unique(a.Name)
			m.Animations = append(m.Animations, a)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, fail("rig", dir, err)
	}
	log.Printf("[rig] Loaded '%s': %d joints, %d vertices, %d animations",
		m.Name, sk.JointCount(), m.Mesh.VertexCount(), len(m.Animations))
	return m, nil
}
