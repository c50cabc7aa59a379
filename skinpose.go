package main

import (
	"context"
	"flag"
	"log"

	"github.com/mogaika/skinpose/anim"
	"github.com/mogaika/skinpose/config"
	"github.com/mogaika/skinpose/gltfio"
	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/rig"
	"github.com/mogaika/skinpose/skin"
	"github.com/mogaika/skinpose/utils"
	"github.com/mogaika/skinpose/web"
)

func main() {
	var rigPath, gltfPath, configPath, animName, subtree, exportPath, bakePath, rigOut string
	var frame int
	var resample, dump bool
	var flags config.Flags
	flag.StringVar(&rigPath, "rig", "", "Path to rig descriptor")
	flag.StringVar(&gltfPath, "gltf", "", "Path to gltf/glb with skeleton, mesh and animations")
	flag.StringVar(&configPath, "config", "", "Path to yaml settings")
	flag.StringVar(&flags.Mode, "mode", "", "Skinning mode: lbs or dqs")
	flag.StringVar(&flags.Encoding, "encoding", "", "Charmap of rig descriptors")
	flag.Float64Var(&flags.FPS, "fps", 0, "Playback frames per second")
	flag.Float64Var(&flags.Speed, "speed", 0, "Playback speed multiplier")
	flag.BoolVar(&flags.Keep, "keep", false, "Keep original keyframes when resampling")
	flag.IntVar(&flags.Workers, "workers", 0, "Worker count, 0 - cpu count")
	flag.BoolVar(&resample, "resample", false, "Resample animations to -fps")
	flag.StringVar(&animName, "anim", "", "Animation used by -bake, rest pose when empty")
	flag.IntVar(&frame, "frame", 0, "Keyframe index used by -bake")
	flag.StringVar(&subtree, "subtree", "", "Keep only the joints under this joint")
	flag.StringVar(&exportPath, "export", "", "Export model to gltf/glb")
	flag.StringVar(&bakePath, "bake", "", "Export skinned mesh of -anim -frame to gltf/glb")
	flag.StringVar(&rigOut, "rigout", "", "Write rig descriptor with components into directory")
	flag.StringVar(&flags.Addr, "i", "", "Address of inspection server")
	flag.BoolVar(&dump, "dump", false, "Dump skeleton and animations to log")
	flag.Parse()

	var settings config.Settings
	var err error
	if configPath != "" {
		if settings, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if err := settings.Resolve(flags); err != nil {
		log.Fatal(err)
	}

	var m *model.Model
	if rigPath != "" {
		m, err = rig.Load(rigPath)
	} else if gltfPath != "" {
		m, err = gltfio.Load(gltfPath)
	} else {
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	if m.Mode, err = skin.ParseMode(settings.Mode); err != nil {
		log.Fatal(err)
	}
	m.Workers = settings.Workers
	ctx := context.Background()

	if subtree != "" {
		if m, err = m.ExtractSubtree(subtree); err != nil {
			log.Fatal(err)
		}
		log.Printf("[main] Extracted '%s': %d joints, %d vertices", subtree, m.Skeleton.JointCount(), m.Mesh.VertexCount())
	}

	if resample {
		p := anim.Params{FPS: settings.Playback.FPS, Speed: settings.Playback.Speed, KeepKeyframes: settings.Playback.KeepKeyframes}
		if err := m.Resample(ctx, p); err != nil {
			log.Fatal(err)
		}
		log.Printf("[main] Resampled %d animations at %v fps", len(m.Animations), p.FPS)
	}

	if dump {
		log.Printf("[main] Skeleton of '%s':\n%s", m.Name, m.Skeleton.StringTree())
		for _, a := range m.Animations {
			log.Printf("[main] Animation '%s': %d keyframes %v..%v", a.Name, len(a.Keyframes), a.StartTime(), a.EndTime())
		}
		utils.LogDump(settings)
	}

	action := false
	if exportPath != "" {
		action = true
		doc, err := gltfio.Export(m)
		if err != nil {
			log.Fatal(err)
		}
		if err := gltfio.Save(doc, exportPath); err != nil {
			log.Fatal(err)
		}
		log.Printf("[main] Exported '%s'", exportPath)
	}

	if bakePath != "" {
		action = true
		var vb *skin.VertexBuffer
		if animName == "" {
			vb, err = m.Skin(ctx, m.Pipeline().Rest())
		} else {
			vb, err = m.SkinFrame(ctx, animName, frame)
		}
		if err != nil {
			log.Fatal(err)
		}
		if err := gltfio.Save(gltfio.ExportMesh(m.Name, vb), bakePath); err != nil {
			log.Fatal(err)
		}
		log.Printf("[main] Baked %v skin into '%s'", m.Mode, bakePath)
	}

	if rigOut != "" {
		action = true
		if _, err := rig.Write(rigOut, m, "glb"); err != nil {
			log.Fatal(err)
		}
	}

	// serve when asked, or when there is nothing else to do
	if flags.Addr != "" || (!action && !dump) {
		if err := web.NewServer(m, settings.Playback.FPS).Start(settings.Addr); err != nil {
			log.Fatal(err)
		}
	}
}
