package rig

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/gltfio"
	"github.com/mogaika/skinpose/model"
)

// Write stores the model as a descriptor next to one file with skeleton, mesh
// and weights, plus one file per animation in AnimationsDir. ext is gltf or
// glb. Returns the descriptor path.
func Write(dir string, m *model.Model, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext != "gltf" && ext != "glb" {
		return "", errors.Errorf("Unsupported rig component format %q", ext)
	}
	bodyFile := m.Name + "." + ext
	d := &Descriptor{Name: m.Name, Skeleton: bodyFile}
	if m.Mesh != nil && m.Mesh.VertexCount() > 0 {
		d.Mesh = bodyFile
		d.Weights = bodyFile
	}
	for _, a := range m.Animations {
		d.Animations = append(d.Animations, filepath.Join(AnimationsDir, AnimationFile(m.Name, a.Name, ext)))
	}
	// encode first so an unencodable name leaves nothing on disk
	data, err := d.Marshal()
	if err != nil {
		return "", errors.Wrapf(err, "Failed to encode descriptor")
	}

	if err := os.MkdirAll(filepath.Join(dir, AnimationsDir), 0777); err != nil {
		return "", errors.Wrapf(err, "Failed to create '%s'", dir)
	}

	body := model.New(m.Name, m.Skeleton)
	body.Mesh, body.Weights = m.Mesh, m.Weights
	if err := save(body, filepath.Join(dir, bodyFile)); err != nil {
		return "", err
	}
	for i, a := range m.Animations {
		clip := model.New(m.Name, m.Skeleton)
		clip.Mesh, clip.Weights = nil, nil
		clip.Animations = []*anim.Animation{a}
		if err := save(clip, filepath.Join(dir, d.Animations[i])); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, m.Name+Ext)
	if err := ioutil.WriteFile(path, data, 0666); err != nil {
		return "", errors.Wrapf(err, "Failed to write '%s'", path)
	}
	log.Printf("[rig] Written '%s' with %d animations", path, len(d.Animations))
	return path, nil
}

func save(m *model.Model, path string) error {
	doc, err := gltfio.Export(m)
	if err != nil {
		return err
	}
	return gltfio.Save(doc, path)
}
