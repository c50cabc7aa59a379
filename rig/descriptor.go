// Package rig reads and writes rig descriptors: text files naming the glTF
// files a model is assembled from.
//
//	# comment
//	n <model name>
//	s <skeleton path>
//	m <mesh path>
//	w <weights path>
//	a <animation path>
//
// Records a may repeat. Paths are relative to the descriptor directory.
package rig

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/utils"
)

const (
	Ext           = ".rig"
	AnimationsDir = "animations"
)

type Descriptor struct {
	Name       string
	Skeleton   string
	Mesh       string
	Weights    string
	Animations []string
}

// Parse decodes descriptor bytes with the configured text encoding.
func Parse(data []byte) (*Descriptor, error) {
	text, err := utils.DecodeText(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode descriptor")
	}

	d := &Descriptor{}
	s := bufio.NewScanner(strings.NewReader(text))
	for line := 1; s.Scan(); line++ {
		l := strings.TrimSpace(s.Text())
		if l == "" || l[0] == '#' {
			continue
		}
		tag := l
		value := ""
		if i := strings.IndexAny(l, " \t"); i >= 0 {
			tag, value = l[:i], strings.TrimSpace(l[i+1:])
		}
		if value == "" {
			return nil, errors.Errorf("Line %d: record %q without value", line, tag)
		}

		var field *string
		switch tag {
		case "n":
			field = &d.Name
		case "s":
			field = &d.Skeleton
		case "m":
			field = &d.Mesh
		case "w":
			field = &d.Weights
		case "a":
			d.Animations = append(d.Animations, filepath.FromSlash(value))
			continue
		default:
			return nil, errors.Errorf("Line %d: unknown record %q", line, tag)
		}
		if *field != "" {
			return nil, errors.Errorf("Line %d: duplicated record %q", line, tag)
		}
		if tag == "n" {
			*field = value
		} else {
			*field = filepath.FromSlash(value)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "Failed to scan descriptor")
	}
	return d, nil
}

func (d *Descriptor) Marshal() ([]byte, error) {
	var b bytes.Buffer
	record := func(tag, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", tag, value)
		}
	}
	record("n", d.Name)
	record("s", filepath.ToSlash(d.Skeleton))
	record("m", filepath.ToSlash(d.Mesh))
	record("w", filepath.ToSlash(d.Weights))
	for _, a := range d.Animations {
		record("a", filepath.ToSlash(a))
	}
	return utils.EncodeText(b.String())
}

func (d *Descriptor) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// AnimationFile is the file name of an animation of model inside AnimationsDir.
func AnimationFile(model, animation, ext string) string {
	clean := strings.NewReplacer("/", "_", "\\", "_", "@", "_").Replace(animation)
	return fmt.Sprintf("%s@%s.%s", model, clean, strings.TrimPrefix(ext, "."))
}
