package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/SurveyForge/internal/services"
)

// POST /register {username, password}
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.log.WithField("username", req.Username).Info("user registered")
	writeMessage(w, "User registered")
}

// POST /login, form-encoded username and password (OAuth2 password flow).
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	res, err := rt.auth.Login(r.Context(), username, password)
	if err != nil {
		if services.HasCode(err, services.ErrorUnauthorized) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /surveys
func (rt *Router) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	var payload services.SurveyPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		rt.writeError(w, r, err)
		return
	}
	id, err := rt.surveys.Create(r.Context(), actor(r), payload)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Survey created"})
}

// GET /my-surveys
func (rt *Router) handleMySurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.surveys.ListOwned(r.Context(), actor(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /all-surveys lists everyone else's surveys.
func (rt *Router) handleAllSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.surveys.ListOthers(r.Context(), actor(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /survey/{id}
func (rt *Router) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := rt.surveys.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sv)
}

// DELETE /surveys/{id}
func (rt *Router) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := rt.surveys.Delete(r.Context(), id, actor(r)); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.log.WithFields(logrus.Fields{"survey_id": id, "username": actor(r)}).Info("survey deleted")
	writeMessage(w, "Survey deleted")
}

// POST /responses/{surveyId} {answers}
func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]any `json:"answers"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if req.Answers == nil {
		rt.writeError(w, r, services.NewInvalidError("answers are required"))
		return
	}
	if _, err := rt.responses.Submit(r.Context(), mux.Vars(r)["surveyId"], actor(r), req.Answers); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeMessage(w, "Response submitted")
}

// GET /getresponses/{surveyId}, owner only.
func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	out, err := rt.responses.ListForSurvey(r.Context(), mux.Vars(r)["surveyId"], actor(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /support/ai {message}
func (rt *Router) handleSupport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	reply, err := rt.support.Ask(r.Context(), actor(r), req.Message)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
