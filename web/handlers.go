package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/gltfio"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/skeleton"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/webutils"
	"github.com/mogaika/skinpose/xform"
)

type ModelInfo struct {
	Name       string
	Joints     int
	Vertices   int
	Triangles  int
	Mode       string
	Animations []string
}

type JointInfo struct {
	ID       skeleton.JointID
	Name     string
	Parent   skeleton.Ref
	Children []skeleton.JointID
	Hidden   bool
	BindPose mgl64.Mat4
	Position mgl64.Vec3
	// local bind rotation as roll, pitch and yaw in degrees
	Rotation mgl64.Vec3
}

type AnimationInfo struct {
	Name     string
	Frames   int
	Start    float64
	End      float64
	Duration float64
	Times    []float64 `json:",omitempty"`
}

type FrameInfo struct {
	Animation    string
	Index        int
	Time         float64
	Locals       []mgl64.Mat4
	Deformations []mgl64.Mat4
	Positions    []mgl64.Vec3
}

func animationInfo(a *anim.Animation, times bool) AnimationInfo {
	info := AnimationInfo{
		Name:   a.Name,
		Frames: len(a.Keyframes),
	}
	if len(a.Keyframes) != 0 {
		info.Start, info.End, info.Duration = a.StartTime(), a.EndTime(), a.Duration()
	}
	if times {
		info.Times = make([]float64, len(a.Keyframes))
		for i, f := range a.Keyframes {
			info.Times[i] = f.Time
		}
	}
	return info
}

func (s *Server) HandlerModel(w http.ResponseWriter, r *http.Request) {
	s.read(func(m *model.Model) {
		webutils.WriteJson(w, &ModelInfo{
			Name:       m.Name,
			Joints:     m.Skeleton.JointCount(),
			Vertices:   m.Mesh.VertexCount(),
			Triangles:  len(m.Mesh.Indices) / 3,
			Mode:       m.Mode.String(),
			Animations: m.AnimationNames(),
		})
	})
}

func skeletonInfo(m *model.Model) []JointInfo {
	sk := m.Skeleton
	localBind := m.Pipeline().LocalBindPose()
	joints := make([]JointInfo, 0, sk.JointCount())
	for _, j := range sk.Joints() {
		joints = append(joints, JointInfo{
			ID:       j.ID,
			Name:     j.Name,
			Parent:   j.Parent,
			Children: sk.Children(j.ID),
			Hidden:   j.Hidden,
			BindPose: j.BindPose,
			Position: xform.Translation(j.BindPose),
			Rotation: utils.RadiansToDegreeV3(utils.QuatToEuler(xform.Rotation(localBind[j.ID]))),
		})
	}
	return joints
}

func (s *Server) HandlerSkeleton(w http.ResponseWriter, r *http.Request) {
	s.read(func(m *model.Model) {
		webutils.WriteJson(w, skeletonInfo(m))
	})
}

func (s *Server) HandlerDumpSkeleton(w http.ResponseWriter, r *http.Request) {
	s.read(func(m *model.Model) {
		webutils.WriteJsonFile(w, skeletonInfo(m), m.Name+"_skeleton")
	})
}

func (s *Server) HandlerAnimations(w http.ResponseWriter, r *http.Request) {
	s.read(func(m *model.Model) {
		list := make([]AnimationInfo, len(m.Animations))
		for i, a := range m.Animations {
			list[i] = animationInfo(a, false)
		}
		webutils.WriteJson(w, list)
	})
}

func (s *Server) HandlerAnimation(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["anim"]
	s.read(func(m *model.Model) {
		a := m.Animation(name)
		if a == nil {
			webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Animation '%s' not found", name))
			return
		}
		webutils.WriteJson(w, animationInfo(a, true))
	})
}

func frameParam(r *http.Request) (int, error) {
	param := mux.Vars(r)["frame"]
	index, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("frame '%s' is not integer", param)
	}
	return index, nil
}

func (s *Server) HandlerFrame(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["anim"]
	index, err := frameParam(r)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.read(func(m *model.Model) {
		f, err := m.Frame(name, index)
		if err != nil {
			webutils.WriteError(w, http.StatusNotFound, err)
			return
		}
		D := m.Deformations(f)
		webutils.WriteJson(w, &FrameInfo{
			Animation:    name,
			Index:        index,
			Time:         f.Time,
			Locals:       f.Transforms,
			Deformations: D,
			Positions:    m.Pipeline().JointPositions(D),
		})
	})
}

func (s *Server) HandlerDumpSkinned(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["anim"]
	index, err := frameParam(r)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.read(func(m *model.Model) {
		vb, err := m.SkinFrame(r.Context(), name, index)
		if err != nil {
			webutils.WriteError(w, http.StatusNotFound, err)
			return
		}
		fileName := fmt.Sprintf("%s@%s_%d", m.Name, name, index)
		writeGlb(w, gltfio.ExportMesh(fileName, vb), fileName)
	})
}

func (s *Server) HandlerDumpModel(w http.ResponseWriter, r *http.Request) {
	s.read(func(m *model.Model) {
		doc, err := gltfio.Export(m)
		if err != nil {
			webutils.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		writeGlb(w, doc, m.Name)
	})
}

func writeGlb(w http.ResponseWriter, doc *gltf.Document, name string) {
	var buf bytes.Buffer
	if err := gltfio.Encode(&buf, doc, true); err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	webutils.WriteFile(w, &buf, name+".glb")
}
