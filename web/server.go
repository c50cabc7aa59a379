// Package web serves a loaded model for inspection: json views of the
// skeleton and animations, glb dumps and a websocket playback stream.
package web

import (
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/skinpose/model"
)

type Server struct {
	lock  sync.RWMutex
	model *model.Model

	// playback rate of websocket streams, frames per second
	FPS float64

	upgrader websocket.Upgrader
}

func NewServer(m *model.Model, fps float64) *Server {
	s := &Server{FPS: fps}
	s.SetModel(m)
	return s
}

// SetModel swaps the served model. The pipeline is built here so handlers
// only read it.
func (s *Server) SetModel(m *model.Model) {
	m.Pipeline()
	s.lock.Lock()
	defer s.lock.Unlock()
	s.model = m
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/model", s.HandlerModel)
	r.HandleFunc("/json/skeleton", s.HandlerSkeleton)
	r.HandleFunc("/json/animations", s.HandlerAnimations)
	r.HandleFunc("/json/animation/{anim}", s.HandlerAnimation)
	r.HandleFunc("/json/animation/{anim}/frame/{frame}", s.HandlerFrame)
	r.HandleFunc("/dump/skinned/{anim}/{frame}", s.HandlerDumpSkinned)
	r.HandleFunc("/dump/skeleton", s.HandlerDumpSkeleton)
	r.HandleFunc("/dump/model", s.HandlerDumpModel)
	r.HandleFunc("/ws/playback/{anim}", s.HandlerPlayback)
	return r
}

func (s *Server) Start(addr string) error {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler()(h)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}

func (s *Server) read(fn func(m *model.Model)) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	fn(s.model)
}
