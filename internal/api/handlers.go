package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/moonape1226/dlob-server/internal/codec"
	"github.com/moonape1226/dlob-server/internal/dlob"
	"github.com/moonape1226/dlob-server/internal/market"
)

// handleOrdersJSONRaw implements /orders/json/raw: the raw numeric
// leak is deliberate, see the Open Question decision in DESIGN.md.
func (s *Server) handleOrdersJSONRaw(w http.ResponseWriter, r *http.Request) {
	entries := s.app.Source.GetUserAccounts()

	orders := make([]ordersEntryRaw, 0, len(entries))
	for _, e := range entries {
		for _, o := range e.Account.OpenOrders() {
			orders = append(orders, ordersEntryRaw{User: e.PubKey.String(), Order: o})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":    s.currentSlot(),
		"oracles": s.oracleEntries(),
		"orders":  orders,
	})
}

// handleOrdersJSON implements /orders/json: same tuples, bigints
// stringified, enums named.
func (s *Server) handleOrdersJSON(w http.ResponseWriter, r *http.Request) {
	entries := s.app.Source.GetUserAccounts()

	orders := make([]ordersEntry, 0, len(entries))
	for _, e := range entries {
		for _, o := range e.Account.OpenOrders() {
			orders = append(orders, ordersEntry{User: e.PubKey.String(), Order: toOrderJSONView(o)})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":    s.currentSlot(),
		"oracles": s.oracleEntries(),
		"orders":  orders,
	})
}

// handleOrdersIDL implements /orders/idl: the raw concatenated
// wire-compatible buffer, served verbatim (spec.md §6 "DLOB codec").
func (s *Server) handleOrdersIDL(w http.ResponseWriter, r *http.Request) {
	buf, err := codec.EncodeOrders(s.app.Source.GetUserAccounts())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		s.logError("orders_idl_encode_failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

// handleOrdersIDLWithSlot implements /orders/idlWithSlot: the same
// buffer, base64-encoded, alongside the slot it was built at. An
// optional market filter narrows which accounts are encoded.
func (s *Server) handleOrdersIDLWithSlot(w http.ResponseWriter, r *http.Request) {
	entries := s.app.Source.GetUserAccounts()

	if hasMarketSelector(r.URL.Query()) {
		m, err := resolveMarket(s.app.Markets, r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = filterEntriesByMarket(entries, m.Key)
	}

	buf, err := codec.EncodeOrders(entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal error")
		s.logError("orders_idl_with_slot_encode_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot": s.currentSlot(),
		"data": base64.StdEncoding.EncodeToString(buf),
	})
}

func hasMarketSelector(q map[string][]string) bool {
	_, hasName := q["marketName"]
	_, hasType := q["marketType"]
	_, hasIndex := q["marketIndex"]
	return hasName || (hasType && hasIndex)
}

func filterEntriesByMarket(entries []dlob.IndexEntry, key market.Key) []dlob.IndexEntry {
	out := make([]dlob.IndexEntry, 0, len(entries))
	for _, e := range entries {
		filtered := &dlob.UserAccount{PubKey: e.Account.PubKey, Authority: e.Account.Authority}
		matched := false
		for i, o := range e.Account.Orders {
			if o.Status != dlob.StatusInit && o.MarketType == key.Type && o.MarketIndex == key.Index {
				filtered.Orders[i] = o
				matched = true
			}
		}
		if matched {
			out = append(out, dlob.IndexEntry{PubKey: e.PubKey, Account: filtered})
		}
	}
	return out
}

// handleTopMakers implements /topMakers.
func (s *Server) handleTopMakers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := resolveMarket(s.app.Markets, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	isBid, err := parseSide(q.Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseOptionalInt(q, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeUserStats := parseOptionalBool(q, "includeUserStats")

	var bids, asks []*dlob.RestingOrder
	if isBid {
		bids = s.app.Books.RestingLimitBids(m.Key)
	} else {
		asks = s.app.Books.RestingLimitAsks(m.Key)
	}

	resp := dlob.GetTopMakers(bids, asks, s.orderIndexFor(), s.app.Stats, limit, includeUserStats)
	if isBid {
		writeJSON(w, http.StatusOK, resp.Bids)
	} else {
		writeJSON(w, http.StatusOK, resp.Asks)
	}
}

// handleL2 implements /l2.
func (s *Server) handleL2(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, code, err := s.buildL2(q)
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.withOracle(resp, q))
}

// withOracle attaches the requesting market's oracle quote when
// includeOracle is set (spec.md §6 "/l2 ... includeOracle?").
func (s *Server) withOracle(resp dlob.L2Response, q map[string][]string) interface{} {
	if !parseOptionalBool(q, "includeOracle") {
		return resp
	}
	m, err := resolveMarket(s.app.Markets, q)
	if err != nil {
		return resp
	}
	quote, ok := s.app.Oracle.Get(m.Key.Index)
	if !ok {
		return resp
	}
	return struct {
		dlob.L2Response
		Oracle oracleEntry `json:"oracle"`
	}{
		L2Response: resp,
		Oracle: oracleEntry{
			MarketIndex: m.Key.Index,
			Price:       dlob.NewBigDecimalString(quote.Price),
			Confidence:  dlob.NewBigDecimalString(quote.Confidence),
			Slot:        quote.Slot,
		},
	}
}

// handleBatchL2 implements /batchL2: all /l2 params repeated, either
// comma-joined or as equal-length arrays (spec.md §6).
func (s *Server) handleBatchL2(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	batchKeys := []string{"marketName", "marketType", "marketIndex", "depth", "numVammOrders", "includeVamm", "includePhoenix", "includeSerum", "grouping", "includeOracle"}

	lists := make(map[string][]string, len(batchKeys))
	for _, k := range batchKeys {
		lists[k] = splitBatchParam(q[k])
	}
	n, err := normalizeBatch(lists)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if n == 0 {
		writeError(w, http.StatusBadRequest, "batchL2 requires at least one market selector")
		return
	}

	l2s := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		single := make(map[string][]string, len(batchKeys))
		for _, k := range batchKeys {
			padded := padTo(lists[k], n)
			if padded[i] != "" {
				single[k] = []string{padded[i]}
			}
		}
		resp, code, err := s.buildL2(single)
		if err != nil {
			writeError(w, code, err.Error())
			return
		}
		l2s = append(l2s, s.withOracle(resp, single))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"l2s": l2s})
}

// buildL2 is shared between /l2 and /batchL2; q may be either
// url.Values or the map[string][]string a single batch slot builds.
func (s *Server) buildL2(q map[string][]string) (dlob.L2Response, int, error) {
	m, err := resolveMarket(s.app.Markets, q)
	if err != nil {
		return dlob.L2Response{}, http.StatusBadRequest, err
	}

	grp, err := parseOptionalGrouping(q)
	if err != nil {
		return dlob.L2Response{}, http.StatusBadRequest, err
	}

	depth, err := parseOptionalInt(q, "depth", 10)
	if err != nil {
		return dlob.L2Response{}, http.StatusBadRequest, err
	}
	// No draw-depth override is needed for grouping: GetL2 always draws
	// the full snapshot and applies depth only after merging and grouping.

	numVamm, err := parseOptionalInt(q, "numVammOrders", dlob.DefaultNumVammOrders)
	if err != nil {
		return dlob.L2Response{}, http.StatusBadRequest, err
	}
	includeVamm := parseOptionalBool(q, "includeVamm")

	snap := s.app.Books.Snapshot(m.Key)
	if snap == nil {
		snap = &dlob.Snapshot{Slot: s.currentSlot()}
	}

	venues := s.app.venuesFor(m.Key)
	var fallbacks []*dlob.FallbackVenue
	if parseOptionalBool(q, "includePhoenix") || parseOptionalBool(q, "includeSerum") {
		fallbacks = venues.Fallbacks
	}

	resp := dlob.GetL2(snap, m.Key.Type == market.Spot, dlob.L2Params{
		Depth:         depth,
		Grouping:      grp,
		IncludeVamm:   includeVamm,
		NumVammOrders: numVamm,
		Vamm:          venues.Vamm,
		Fallbacks:     fallbacks,
	})
	return resp, http.StatusOK, nil
}

// handleL3 implements /l3.
func (s *Server) handleL3(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := resolveMarket(s.app.Markets, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := s.app.Books.Snapshot(m.Key)
	if snap == nil {
		snap = &dlob.Snapshot{Slot: s.currentSlot()}
	}

	l3 := dlob.GetL3(snap)
	if !parseOptionalBool(q, "includeOracle") {
		writeJSON(w, http.StatusOK, l3)
		return
	}
	quote, ok := s.app.Oracle.Get(m.Key.Index)
	if !ok {
		writeJSON(w, http.StatusOK, l3)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		dlob.L3Response
		Oracle oracleEntry `json:"oracle"`
	}{
		L3Response: l3,
		Oracle: oracleEntry{
			MarketIndex: m.Key.Index,
			Price:       dlob.NewBigDecimalString(quote.Price),
			Confidence:  dlob.NewBigDecimalString(quote.Confidence),
			Slot:        quote.Slot,
		},
	})
}

func (s *Server) currentSlot() uint64 {
	// Reports the slot of a published book snapshot; oracle quotes are
	// not consulted. Before any snapshot exists (cold start) it reports
	// 0 rather than fabricating a value.
	for _, m := range s.app.Markets.All() {
		if snap := s.app.Books.Snapshot(m.Key); snap != nil {
			return snap.Slot
		}
	}
	return 0
}

func (s *Server) oracleEntries() []oracleEntry {
	var out []oracleEntry
	for _, m := range s.app.Markets.All() {
		q, ok := s.app.Oracle.Get(m.Key.Index)
		if !ok {
			continue
		}
		out = append(out, oracleEntry{
			MarketIndex: m.Key.Index,
			Price:       dlob.NewBigDecimalString(q.Price),
			Confidence:  dlob.NewBigDecimalString(q.Confidence),
			Slot:        q.Slot,
		})
	}
	return out
}

// dataSourceResolver adapts DataSource.GetUserAccount to the
// dlob.AuthorityResolver interface GetTopMakers consumes.
type dataSourceResolver struct{ source DataSource }

func (d dataSourceResolver) Get(pubkey solana.PublicKey) *dlob.UserAccount {
	return d.source.GetUserAccount(pubkey)
}

func (s *Server) orderIndexFor() dlob.AuthorityResolver {
	return dataSourceResolver{source: s.app.Source}
}

func (s *Server) logError(event string, err error) {
	if s.logger != nil {
		s.logger.Errorw(event, "err", err)
	}
}
