package mockapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sajagmathur/mlconsole/internal/resource"
)

// mountResource registers CRUD routes for one resource table plus any
// action verbs (POST {id}/{verb}).
func mountResource[T any](r chi.Router, path string, t *table[T], verbs map[string]http.HandlerFunc) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, t.list())
		})
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var rec T
			if err := readJSON(req, &rec); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
				return
			}
			writeJSON(w, http.StatusCreated, t.create(rec))
		})
		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := t.get(chi.URLParam(req, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, "not_found", "resource not found")
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})
		r.Put("/{id}", func(w http.ResponseWriter, req *http.Request) {
			var rec T
			if err := readJSON(req, &rec); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
				return
			}
			updated, ok := t.update(chi.URLParam(req, "id"), rec)
			if !ok {
				writeError(w, http.StatusNotFound, "not_found", "resource not found")
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, req *http.Request) {
			if !t.delete(chi.URLParam(req, "id")) {
				writeError(w, http.StatusNotFound, "not_found", "resource not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		})
		for verb, handler := range verbs {
			r.Post("/{id}/"+verb, handler)
		}
	})
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.data.pipelines.mutate(id, func(p resource.Pipeline) resource.Pipeline {
		p.Status = resource.PipelineRunning
		now := time.Now().UTC()
		p.LastRunAt = &now
		return p
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "pipeline not found")
		return
	}

	// Simulated execution: flip to succeeded after the run delay, but only
	// if the pipeline is still running.
	time.AfterFunc(s.runDelay, func() {
		s.data.pipelines.mutate(id, func(p resource.Pipeline) resource.Pipeline {
			if p.Status == resource.PipelineRunning {
				p.Status = resource.PipelineSucceeded
			}
			return p
		})
	})

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleScheduleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.data.schedules.mutate(id, func(sc resource.Schedule) resource.Schedule {
		sc.Status = resource.ScheduleRunning
		now := time.Now().UTC()
		sc.LastRunAt = &now
		return sc
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "schedule not found")
		return
	}

	time.AfterFunc(s.runDelay, func() {
		s.data.schedules.mutate(id, func(sc resource.Schedule) resource.Schedule {
			if sc.Status == resource.ScheduleRunning {
				sc.Status = resource.ScheduleCompleted
			}
			return sc
		})
	})

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleMonitorCheck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.data.monitors.mutate(id, func(m resource.Monitor) resource.Monitor {
		now := time.Now().UTC()
		m.LastCheckedAt = &now
		if m.DriftScore > m.DriftThreshold {
			m.Status = resource.MonitorDrifting
		} else {
			m.Status = resource.MonitorHealthy
		}
		return m
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "monitor not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleModelApprove(w http.ResponseWriter, r *http.Request) {
	s.transitionModel(w, r, resource.ModelProduction)
}

func (s *Server) handleModelReject(w http.ResponseWriter, r *http.Request) {
	s.transitionModel(w, r, resource.ModelRejected)
}

func (s *Server) transitionModel(w http.ResponseWriter, r *http.Request, stage resource.ModelStage) {
	rec, ok := s.data.models.mutate(chi.URLParam(r, "id"), func(m resource.ModelVersion) resource.ModelVersion {
		m.Stage = stage
		return m
	})
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "model not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
