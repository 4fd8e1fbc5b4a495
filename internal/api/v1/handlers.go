package v1

import (
	"errors"
	"fmt"
	"net/http"

	"hotspotd/internal/app"
	"hotspotd/models"
	"hotspotd/pkg/hotspotd-api/types"
	"hotspotd/policy"
	"hotspotd/wireless"

	"github.com/rs/zerolog/log"
)

type Handler struct {
	app *app.App
}

func NewHandler(a *app.App) *Handler {
	return &Handler{app: a}
}

func statusRes(st app.Status) types.HotspotRes {
	return types.HotspotRes{
		State:       st.State,
		Running:     st.Running,
		Delegate:    st.Delegate,
		Firewall:    st.Firewall,
		STA:         st.STA,
		WAN:         st.WAN,
		AP:          st.AP,
		SharedRadio: st.SharedRadio,
		SSID:        st.SSID,
	}
}

func startErrorCode(err error) int {
	switch {
	case errors.Is(err, app.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, app.ErrWeakPassphrase),
		errors.Is(err, wireless.ErrNoWirelessInterface),
		errors.Is(err, wireless.ErrNoWanRoute),
		errors.Is(err, wireless.ErrConcurrencyUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) StartHotspot(w http.ResponseWriter, r *http.Request) {
	if err := h.app.StartHotspot(r.Context()); err != nil {
		WriteError(w, startErrorCode(err), err.Error())
		return
	}
	WriteJson(w, http.StatusOK, statusRes(h.app.Status()))
}

func (h *Handler) StopHotspot(w http.ResponseWriter, r *http.Request) {
	if err := h.app.StopHotspot(r.Context()); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, app.ErrNotRunning) {
			code = http.StatusConflict
		}
		WriteError(w, code, err.Error())
		return
	}
	WriteJson(w, http.StatusOK, statusRes(h.app.Status()))
}

func (h *Handler) GetHotspot(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, http.StatusOK, statusRes(h.app.Status()))
}

func (h *Handler) GetClients(w http.ResponseWriter, r *http.Request) {
	stations, err := h.app.Clients(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, app.ErrNotRunning) {
			code = http.StatusConflict
		}
		WriteError(w, code, err.Error())
		return
	}
	p := h.app.Policy()
	res := types.ClientsRes{Clients: make([]types.ClientRes, len(stations))}
	for i, st := range stations {
		client := types.ClientRes{
			MAC:       st.MAC,
			SignalDBM: st.SignalDBM,
			RxBytes:   st.RxBytes,
			TxBytes:   st.TxBytes,
			Blocked:   p.IsBlocked(st.MAC),
			Priority:  p.IsPriority(st.MAC),
		}
		if bps, ok := p.Rates[st.MAC]; ok {
			client.Rate = policy.FormatRate(bps)
		}
		res.Clients[i] = client
	}
	WriteJson(w, http.StatusOK, res)
}

func policyRes(p models.Policy) types.PolicyRes {
	rates := make(map[string]string, len(p.Rates))
	for mac, bps := range p.Rates {
		rates[mac] = policy.FormatRate(bps)
	}
	return types.PolicyRes{Blocked: p.Blocked, Rates: rates, Priority: p.Priority}
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	WriteJson(w, http.StatusOK, policyRes(h.app.Policy()))
}

// mutatePolicy funnels the policy commands through one shape: parse the
// request, run the store mutation, answer with the resulting snapshot.
func (h *Handler) mutatePolicy(w http.ResponseWriter, mutate func() error) {
	if err := mutate(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, policy.ErrBadMAC) || errors.Is(err, policy.ErrBadRate) {
			code = http.StatusBadRequest
		}
		WriteError(w, code, err.Error())
		return
	}
	WriteJson(w, http.StatusOK, policyRes(h.app.Policy()))
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.MACReq](r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.mutatePolicy(w, func() error { return h.app.Block(req.MAC) })
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.MACReq](r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.mutatePolicy(w, func() error { return h.app.Unblock(req.MAC) })
}

func (h *Handler) QoS(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.QoSReq](r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.mutatePolicy(w, func() error { return h.app.SetRate(req.MAC, req.Rate) })
}

func (h *Handler) Priority(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.PriorityReq](r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	enabled := req.Enabled == nil || *req.Enabled
	h.mutatePolicy(w, func() error { return h.app.SetPriority(req.MAC, enabled) })
}

func (h *Handler) ResetPolicy(w http.ResponseWriter, r *http.Request) {
	h.mutatePolicy(w, h.app.ResetPolicy)
}

func (h *Handler) ListInterfaces(w http.ResponseWriter, r *http.Request) {
	interfaces, err := h.app.ListInterfaces()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Errorf("failed to get interfaces: %w", err).Error())
		return
	}
	res := make([]types.InterfaceRes, len(interfaces))
	for i, iface := range interfaces {
		res[i] = types.InterfaceRes{ID: iface.Name}
	}
	WriteJson(w, http.StatusOK, types.InterfacesRes{Interfaces: res})
}

func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.app.SaveConfig(); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save config: %v", err))
		return
	}
	log.Debug().Msg("config saved via API")
}

func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	entries := h.app.Logs().GetAll()
	res := types.LogsRes{Logs: make([]types.LogEntryRes, len(entries))}
	for i, e := range entries {
		res.Logs[i] = types.LogEntryRes{Time: e.Time, Level: e.Level, Message: e.Message}
	}
	WriteJson(w, http.StatusOK, res)
}
