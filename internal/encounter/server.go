package encounter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/encounter-mvp/internal/auth"
)

// TokenVerifier checks a bearer token and yields the verified claims.
// Satisfied by *auth.Service; tests plug in a stub.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Server is the HTTP surface over the encounter service: the eight game
// operations, view fetch and the ws change feed.
type Server struct {
	svc      *Service
	hub      *Hub
	verifier TokenVerifier
}

func NewServer(svc *Service, hub *Hub, verifier TokenVerifier) *Server {
	return &Server{svc: svc, hub: hub, verifier: verifier}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", s.handleCreate)
	mux.HandleFunc("POST /api/games/{id}/join", s.handleJoin)
	mux.HandleFunc("GET /api/games/{id}/view", s.handleView)
	mux.HandleFunc("POST /api/games/{id}/faction", s.handleFaction)
	mux.HandleFunc("POST /api/games/{id}/leader", s.handleLeader)
	mux.HandleFunc("POST /api/games/{id}/crew", s.handleCrewList)
	mux.HandleFunc("POST /api/games/{id}/schemes", s.handleSchemes)
	mux.HandleFunc("POST /api/games/{id}/round", s.handleRound)
	mux.HandleFunc("POST /api/games/{id}/strategy-score", s.handleStrategyScore)
	mux.HandleFunc("POST /api/games/{id}/schemes/reveal", s.handleRevealScheme)
	mux.HandleFunc("POST /api/games/{id}/schemes/score", s.handleScoreScheme)
	mux.HandleFunc("POST /api/games/{id}/finish", s.handleFinish)
	mux.HandleFunc("/ws/", s.handleWS)
}

type createRequest struct {
	Code        string `json:"code"`
	Multiplayer bool   `json:"multiplayer"`
	ChooseCrew  bool   `json:"chooseCrew"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	g, err := s.svc.Create(r.Context(), req.Code, Options{
		Multiplayer: req.Multiplayer,
		ChooseCrew:  req.ChooseCrew,
	}, identity)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"gameId": g.ID})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}

	if _, err := s.svc.Join(r.Context(), id, identity); err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "gameId": id})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}

	view, err := s.svc.View(r.Context(), id, identity)
	if err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type valueRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleFaction(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	s.applyCommand(w, r, &req, func() Command { return ChooseFaction{Value: req.Value} })
}

func (s *Server) handleLeader(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	s.applyCommand(w, r, &req, func() Command { return ChooseLeader{Value: req.Value} })
}

func (s *Server) handleCrewList(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	s.applyCommand(w, r, &req, func() Command { return ChooseCrewList{Value: req.Value} })
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int `json:"ids"`
	}
	s.applyCommand(w, r, &req, func() Command { return ChooseSchemes{IDs: req.IDs} })
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Round int `json:"round"`
	}
	s.applyCommand(w, r, &req, func() Command { return AdvanceRound{Round: req.Round} })
}

func (s *Server) handleStrategyScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
	}
	s.applyCommand(w, r, &req, func() Command { return SetStrategyScore{Score: req.Score} })
}

func (s *Server) handleRevealScheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int `json:"id"`
	}
	s.applyCommand(w, r, &req, func() Command { return RevealScheme{SchemeID: req.ID} })
}

func (s *Server) handleScoreScheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    int `json:"id"`
		Score int `json:"score"`
	}
	s.applyCommand(w, r, &req, func() Command { return ScoreScheme{SchemeID: req.ID, Score: req.Score} })
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.applyCommand(w, r, nil, func() Command { return EndGame{} })
}

// applyCommand is the shared shape of every mutation handler: bearer
// identity, validated game id, decoded body, one command through the
// service.
func (s *Server) applyCommand(w http.ResponseWriter, r *http.Request, body any, cmd func() Command) {
	identity, ok := s.identity(w, r)
	if !ok {
		return
	}
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	if body != nil {
		if err := json.NewDecoder(r.Body).Decode(body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
			return
		}
	}

	if _, err := s.svc.Apply(r.Context(), id, identity, cmd()); err != nil {
		s.writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return "", false
	}
	return claims.Email, true
}

func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !validSessionID(id) {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed game id")
		return "", false
	}
	return id, true
}

// writeCoreError maps the service's outcome categories onto HTTP. Anything
// outside the three core categories is a collaborator failure and surfaces
// as a generic unavailability.
func (s *Server) writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not_participant", err.Error())
	case errors.Is(err, ErrRejected):
		writeError(w, http.StatusConflict, "rejected", strings.TrimPrefix(err.Error(), "rejected: "))
	case errors.Is(err, ErrBadInput):
		writeError(w, http.StatusBadRequest, "bad_input", strings.TrimPrefix(err.Error(), "bad input: "))
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", "storage unavailable")
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, errorResponse{Code: errCode, Message: msg})
}
