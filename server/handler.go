package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/ntv"
)

// Handler exposes the registry service over HTTP. It owns request decoding,
// response encoding, and the mapping from domain errors to status codes;
// all business rules live in the Service and the registry itself.
//
// Administrator authorization is account-based: privileged requests carry
// the caller's account and the registry rejects non-administrators. The
// /admin routes exist so deployments can stack transport-level auth on top.
type Handler struct {
	svc *Service
	log *slog.Logger

	adminUser string
	adminPass string
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithAdminToken guards the /admin routes with HTTP basic auth. The token
// has the form "user:password". Account-based authorization still applies
// underneath.
func WithAdminToken(token string) HandlerOption {
	return func(h *Handler) {
		if user, pass, ok := strings.Cut(token, ":"); ok {
			h.adminUser = user
			h.adminPass = pass
		}
	}
}

// NewHandler creates a handler around the given service.
func NewHandler(svc *Service, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the registry API on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Get("/text", h.displayText)
		r.Get("/playing", h.playing)
		r.Get("/stats", h.stats)
		r.Get("/schedule", h.schedulePosition)
		r.Get("/slots", h.listSlots)
		r.Get("/slots/{index}", h.getSlot)
		r.Get("/slots/{index}/text-bytes", h.textBytes)
		r.Get("/ledger/{account}", h.claimable)

		r.Post("/slots/{index}/bid", h.bid)
		r.Post("/slots/{index}/transfer", h.transfer)
		r.Post("/slots/{index}/end", h.end)
		r.Post("/slots/{index}/text", h.setText)
		r.Post("/deposit", h.deposit)

		r.Route("/admin", func(r chi.Router) {
			if h.adminUser != "" {
				r.Use(middleware.BasicAuth("ntvd admin", map[string]string{h.adminUser: h.adminPass}))
			}
			r.Post("/start", h.start)
			r.Post("/slots", h.createSlot)
			r.Post("/slots/{index}/audit", h.audit)
			r.Post("/slots/{index}/sweep", h.sweepSlot)
			r.Post("/sweep", h.sweepGeneral)
			r.Post("/ledger/{account}/settle", h.settle)
		})
	})
}

// statusForError maps domain sentinels onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ntv.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ntv.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ntv.ErrInvalidState),
		errors.Is(err, ntv.ErrCapacityExceeded),
		errors.Is(err, ntv.ErrAlreadyStarted),
		errors.Is(err, ntv.ErrAlreadyEnded),
		errors.Is(err, ntv.ErrAlreadySet):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError {
		h.log.Error("Unexpected handler error", "err", err)
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// slotIndex extracts the {index} URL parameter.
func slotIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("invalid slot index: %v", err)
	}
	return index, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("amount is required")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

// at returns the timestamp to evaluate a read request against: the "at"
// query parameter when present, the current time otherwise.
func (h *Handler) at(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("at")
	if raw == "" {
		return h.svc.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid at parameter: %v", err)
	}
	return t, nil
}

type statusResponse struct {
	Status      string           `json:"status"`
	Started     bool             `json:"started"`
	OnlineTime  *time.Time       `json:"online_time,omitempty"`
	Beneficiary *account.Address `json:"beneficiary,omitempty"`
	Day         int              `json:"day"`
	Number      int              `json:"number"`
	DisplayText string           `json:"display_text"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	now, err := h.at(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg := h.svc.Registry()
	resp := statusResponse{
		Status:      reg.StatusAt(now).String(),
		Started:     reg.Started(),
		Day:         reg.DayFor(now),
		Number:      reg.NumberFor(now),
		DisplayText: reg.DisplayTextAt(now),
	}
	if onlineTime, ok := reg.OnlineTime(); ok {
		resp.OnlineTime = &onlineTime
		beneficiary := reg.Beneficiary()
		resp.Beneficiary = &beneficiary
	}
	writeJSON(w, resp)
}

func (h *Handler) displayText(w http.ResponseWriter, r *http.Request) {
	now, err := h.at(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"text": h.svc.Registry().DisplayTextAt(now)})
}

type playingResponse struct {
	Playing bool      `json:"playing"`
	Slot    *ntv.Info `json:"slot,omitempty"`
}

func (h *Handler) playing(w http.ResponseWriter, r *http.Request) {
	now, err := h.at(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := playingResponse{}
	if slot, ok := h.svc.Registry().PlayingAt(now); ok {
		info := slot.Info()
		resp.Playing = true
		resp.Slot = &info
	}
	writeJSON(w, resp)
}

type statsResponse struct {
	TotalSlots    int      `json:"total_slots"`
	TotalBidders  int      `json:"total_bidders"`
	TotalBids     int      `json:"total_bids"`
	TotalBidValue *big.Int `json:"total_bid_value"`
	MaxBidValue   *big.Int `json:"max_bid_value"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	reg := h.svc.Registry()
	writeJSON(w, statsResponse{
		TotalSlots:    reg.TotalSlots(),
		TotalBidders:  reg.TotalBidders(),
		TotalBids:     reg.TotalBids(),
		TotalBidValue: reg.TotalBidValue(),
		MaxBidValue:   reg.MaxBidValue(),
	})
}

func (h *Handler) schedulePosition(w http.ResponseWriter, r *http.Request) {
	now, err := h.at(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg := h.svc.Registry()
	writeJSON(w, map[string]int{
		"day":    reg.DayFor(now),
		"number": reg.NumberFor(now),
	})
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	offset := 0
	limit := h.svc.Registry().TotalSlots()
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid offset: %v", err), http.StatusBadRequest)
			return
		}
		offset = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
			return
		}
		limit = v
	}

	slots := h.svc.Registry().Query(offset, limit)
	infos := make([]ntv.Info, len(slots))
	for i, s := range slots {
		infos[i] = s.Info()
	}
	writeJSON(w, infos)
}

func (h *Handler) getSlot(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slot, ok := h.svc.Registry().Slot(index)
	if !ok {
		http.Error(w, fmt.Sprintf("no slot at index %d", index), http.StatusNotFound)
		return
	}
	writeJSON(w, slot.Info())
}

type textBytesResponse struct {
	Segments [3]string `json:"segments"`
	Length   int       `json:"length"`
}

func (h *Handler) textBytes(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slot, ok := h.svc.Registry().Slot(index)
	if !ok {
		http.Error(w, fmt.Sprintf("no slot at index %d", index), http.StatusNotFound)
		return
	}

	segments, length := slot.TextBytes96()
	resp := textBytesResponse{Length: length}
	for i, seg := range segments {
		resp.Segments[i] = hex.EncodeToString(seg[:])
	}
	writeJSON(w, resp)
}

func (h *Handler) claimable(w http.ResponseWriter, r *http.Request) {
	acct, err := account.Parse(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid account: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]*big.Int{"claimable": h.svc.Registry().Claimable(acct)})
}

type bidRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// parseBid validates the account and amount of a bid-shaped request.
func (req *bidRequest) parse() (account.Address, *big.Int, error) {
	acct, err := account.Parse(req.Account)
	if err != nil {
		return account.None, nil, fmt.Errorf("invalid account: %v", err)
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return account.None, nil, err
	}
	return acct, amount, nil
}

func (h *Handler) bid(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	acct, amount, err := req.parse()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Bid(r.Context(), index, acct, amount); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	acct, amount, err := req.parse()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Receive(r.Context(), index, acct, amount); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

type depositRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Deposit(r.Context(), amount); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "accepted"})
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.End(r.Context(), index); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ended"})
}

type setTextRequest struct {
	Account string `json:"account"`
	Text    string `json:"text"`
}

func (h *Handler) setText(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req setTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	acct, err := account.Parse(req.Account)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid account: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetText(r.Context(), index, acct, req.Text); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "stored"})
}

type startRequest struct {
	Caller      string    `json:"caller"`
	OnlineTime  time.Time `json:"online_time"`
	Beneficiary string    `json:"beneficiary"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}
	beneficiary, err := account.Parse(req.Beneficiary)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid beneficiary: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.svc.Start(r.Context(), req.OnlineTime, beneficiary, caller); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "started"})
}

type createSlotRequest struct {
	Caller string `json:"caller"`
}

func (h *Handler) createSlot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}

	info, err := h.svc.CreateSlot(r.Context(), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, info)
}

type auditRequest struct {
	Caller       string `json:"caller"`
	Status       int    `json:"status"`
	OverrideText string `json:"override_text,omitempty"`
}

func (h *Handler) audit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.svc.Audit(r.Context(), index, ntv.AuditStatus(req.Status), req.OverrideText, caller); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "audited"})
}

type sweepRequest struct {
	Caller string `json:"caller"`
}

func (h *Handler) sweepSlot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	index, err := slotIndex(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}

	swept, err := h.svc.SweepSlot(r.Context(), index, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]*big.Int{"swept": swept})
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	acct, err := account.Parse(chi.URLParam(r, "account"))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid account: %v", err), http.StatusBadRequest)
		return
	}
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}

	settled, err := h.svc.Settle(r.Context(), acct, caller)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]*big.Int{"settled": settled})
}

func (h *Handler) sweepGeneral(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req sweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	caller, err := account.Parse(req.Caller)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid caller: %v", err), http.StatusBadRequest)
		return
	}

	swept, err := h.svc.SweepGeneral(r.Context(), caller)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, map[string]*big.Int{"swept": swept})
}
