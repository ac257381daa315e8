package directory

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const qrSize = 256

type API struct {
	reg *Registry
	log *zap.Logger
	// JoinBase prefixes the room code in QR payloads, e.g.
	// "bluffparty://join/".
	JoinBase string
}

func NewAPI(reg *Registry, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{reg: reg, log: log, JoinBase: "bluffparty://join/"}
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", Healthz)
	r.Post("/rooms", a.create)
	r.Route("/rooms/{code}", func(r chi.Router) {
		r.Get("/", a.get)
		r.Put("/", a.register)
		r.Delete("/", a.remove)
		r.Get("/qr.png", a.qr)
	})
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func roomCode(r *http.Request) string {
	return strings.ToUpper(chi.URLParam(r, "code"))
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	reply := make(chan AllocateResult, 1)
	a.reg.Inbox() <- Allocate{Reply: reply}
	res := <-reply
	if res.Err != nil {
		a.log.Error("allocate room code", zap.Error(res.Err))
		http.Error(w, "failed to generate code", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Code string `json:"code"`
	}{Code: res.Code})
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	e := a.lookup(roomCode(r))
	if e.Addr == "" {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type registerRequest struct {
	Addr string `json:"addr"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Addr == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	code := roomCode(r)
	a.reg.Inbox() <- Register{Code: code, Addr: req.Addr}
	a.log.Info("room registered", zap.String("room", code), zap.String("addr", req.Addr))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	a.reg.Inbox() <- Remove{Code: roomCode(r)}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) qr(w http.ResponseWriter, r *http.Request) {
	code := roomCode(r)
	if e := a.lookup(code); e.Code == "" {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	png, err := qrcode.Encode(a.JoinBase+code, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (a *API) lookup(code string) Entry {
	reply := make(chan Entry, 1)
	a.reg.Inbox() <- Lookup{Code: code, Reply: reply}
	return <-reply
}
