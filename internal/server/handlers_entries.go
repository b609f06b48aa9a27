package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
)

type createEntryRequest struct {
	EntryType   string      `json:"entry_type"`
	Date        ledger.Date `json:"date"`
	Particulars string      `json:"particulars"`
	VoucherType string      `json:"voucher_type"`
	VoucherNo   string      `json:"voucher_no"`
	Party       string      `json:"party"`
	Category    string      `json:"category"`
	Debit       string      `json:"debit"`
	Credit      string      `json:"credit"`
}

// amount accepts both JSON numbers and strings.
func amountField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func (req *createEntryRequest) UnmarshalJSON(data []byte) error {
	type plain createEntryRequest
	aux := struct {
		*plain
		Debit  json.RawMessage `json:"debit"`
		Credit json.RawMessage `json:"credit"`
	}{plain: (*plain)(req)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Debit) > 0 && string(aux.Debit) != "null" {
		req.Debit = amountField(aux.Debit)
	}
	if len(aux.Credit) > 0 && string(aux.Credit) != "null" {
		req.Credit = amountField(aux.Credit)
	}
	return nil
}

func (s *Server) createEntry(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}

		debit, err := ledger.ParseAmount(req.Debit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		credit, err := ledger.ParseAmount(req.Credit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		e := &ledger.Entry{
			Ledger:      l,
			EntryType:   req.EntryType,
			Date:        req.Date,
			Particulars: req.Particulars,
			VoucherType: req.VoucherType,
			VoucherNo:   req.VoucherNo,
			Party:       req.Party,
			Category:    req.Category,
			Debit:       debit,
			Credit:      credit,
		}

		if err := s.store.CreateEntry(r.Context(), e); err != nil {
			writeError(w, mapError(err), err.Error())
			return
		}
		writeSuccess(w, http.StatusCreated, "entry created", e)
	}
}

func (s *Server) listEntries(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.EntryFilter{Ledger: l, Party: r.URL.Query().Get("party")}

		var err error
		if filter.From, err = ledger.ParseDate(r.URL.Query().Get("from")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if filter.To, err = ledger.ParseDate(r.URL.Query().Get("to")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		entries, err := s.store.ListEntries(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []ledger.Entry{}
		}
		writeSuccess(w, http.StatusOK, "", entries)
	}
}

func (s *Server) getEntry(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := url.PathUnescape(chi.URLParam(r, "id"))
		e, err := s.store.GetEntry(r.Context(), l, id)
		if err != nil {
			writeError(w, mapError(err), err.Error())
			return
		}
		writeSuccess(w, http.StatusOK, "", e)
	}
}

func (s *Server) deleteEntry(l ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := url.PathUnescape(chi.URLParam(r, "id"))
		entryType := r.URL.Query().Get("entry_type")

		if l == ledger.LedgerVendor && entryType != "" {
			switch entryType {
			case ledger.EntryTypeService, ledger.EntryTypePayment, ledger.EntryTypeAdjustment:
			default:
				writeError(w, http.StatusBadRequest, "entry_type must be service, payment, or adjustment")
				return
			}
		}

		if err := s.store.DeleteEntry(r.Context(), l, entryType, id); err != nil {
			writeError(w, mapError(err), err.Error())
			return
		}
		s.logger.Info("entry deleted",
			zap.String("ledger", string(l)),
			zap.String("id", id),
			zap.String("entryType", entryType))
		writeSuccess(w, http.StatusOK, "entry deleted", nil)
	}
}
