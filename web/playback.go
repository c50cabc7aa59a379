package web

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/skinpose/model"
	"github.com/mogaika/skinpose/webutils"
)

const (
	pingPeriod   = time.Second * 30
	writeTimeout = time.Second * 40
	maxFPS       = 1000
)

type PlaybackFrame struct {
	Animation string
	Time      float64
	Positions []mgl64.Vec3
}

type player struct {
	server *Server
	conn   *websocket.Conn
	anim   string
	fps    float64
	speed  float64
	done   chan struct{}
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	q := r.URL.Query().Get(key)
	if q == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil || v <= 0 {
		return 0, errors.Errorf("%s '%s' is not a positive number", key, q)
	}
	return v, nil
}

// HandlerPlayback streams joint positions of a looping animation. Query
// parameters fps and speed override the server rate.
func (s *Server) HandlerPlayback(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["anim"]
	fps, err := queryFloat(r, "fps", s.FPS)
	if err == nil && fps > maxFPS {
		err = errors.Errorf("fps %v is above %v", fps, maxFPS)
	}
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	speed, err := queryFloat(r, "speed", 1)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	found := false
	s.read(func(m *model.Model) { found = m.Animation(name) != nil })
	if !found {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Animation '%s' not found", name))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	p := &player{server: s, conn: conn, anim: name, fps: fps, speed: speed, done: make(chan struct{})}
	go p.readPump()
	p.writePump()
}

// readPump drains client messages and notices the close.
func (p *player) readPump() {
	defer close(p.done)
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// frame samples the animation at elapsed playback time, looping.
func (p *player) frame(elapsed time.Duration) (*PlaybackFrame, error) {
	var msg *PlaybackFrame
	var err error
	p.server.read(func(m *model.Model) {
		a := m.Animation(p.anim)
		if a == nil || len(a.Keyframes) == 0 {
			err = errors.Errorf("Animation '%s' is gone", p.anim)
			return
		}
		t := a.StartTime()
		if d := a.Duration(); d > 0 {
			t += math.Mod(elapsed.Seconds()*p.speed, d)
		}
		D := m.Deformations(a.FrameAt(t))
		msg = &PlaybackFrame{Animation: a.Name, Time: t, Positions: m.Pipeline().JointPositions(D)}
	})
	return msg, err
}

func (p *player) writePump() {
	interval := time.Duration(float64(time.Second) / p.fps)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	frameTicker := time.NewTicker(interval)
	pingTicker := time.NewTicker(pingPeriod)
	started := time.Now()
	defer func() {
		frameTicker.Stop()
		pingTicker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case <-p.done:
			return
		case now := <-frameTicker.C:
			msg, err := p.frame(now.Sub(started))
			if err != nil {
				log.Printf("[web] playback: %v", err)
				p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
				return
			}
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteJSON(msg); err != nil {
				log.Printf("[web] ws write frame error: %v", err)
				return
			}
		case <-pingTicker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[web] ws write ping error: %v", err)
				return
			}
		}
	}
}
