package anim

import (
	"context"
	"fmt"

	"github.com/mogaika/skinpose/parallel"
)

type Params struct {
	FPS           float64
	Speed         float64
	KeepKeyframes bool
}

func (p Params) Step() float64 {
	if p.FPS <= 0 || p.Speed <= 0 {
		panic(fmt.Sprintf("anim: resampling at %v fps with speed %v", p.FPS, p.Speed))
	}
	return 1 / (p.FPS / p.Speed)
}

// Resample converts a keyframe animation into frames spaced by
// 1/(fps/speed). The output starts with the first keyframe and ends with the
// last one; with keepKeyframes the keyframes passed over are emitted too.
// Output times are strictly increasing.
func Resample(a *Animation, fps, speed float64, keepKeyframes bool) *Animation {
	return ResampleParams(a, Params{FPS: fps, Speed: speed, KeepKeyframes: keepKeyframes})
}

func ResampleParams(a *Animation, p Params) *Animation {
	dt := p.Step()
	a.mustBeSorted()

	keys := a.Keyframes
	if len(keys) < 2 {
		out := make([]Frame, len(keys))
		for i := range keys {
			out[i] = keys[i].Clone()
		}
		return New(a.Name, out)
	}

	out := make([]Frame, 0, int(a.Duration()/dt)+len(keys)+1)
	out = append(out, keys[0].Clone())
	last := keys[0].Time
	emit := func(f Frame) {
		if f.Time > last {
			out = append(out, f)
			last = f.Time
		}
	}

	pair := 0 // keyframes pair, pair+1
	for step := 1; ; step++ {
		current := keys[0].Time + float64(step)*dt
		for pair+1 < len(keys) && keys[pair+1].Time <= current {
			pair++
			if p.KeepKeyframes && pair < len(keys)-1 {
				emit(keys[pair].Clone())
			}
		}
		if pair+1 >= len(keys) {
			break
		}
		k1, k2 := keys[pair], keys[pair+1]
		emit(Interpolate(k1, k2, (current-k1.Time)/(k2.Time-k1.Time), current))
	}
	emit(keys[len(keys)-1].Clone())

	return New(a.Name, out)
}

// ResampleAll resamples independent animations on up to workers goroutines.
func ResampleAll(ctx context.Context, anims []*Animation, p Params, workers int) ([]*Animation, error) {
	p.Step()
	out := make([]*Animation, len(anims))
	err := parallel.For(ctx, len(anims), workers, func(i int) error {
		out[i] = ResampleParams(anims[i], p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
